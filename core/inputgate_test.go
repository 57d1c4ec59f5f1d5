package conversation

import (
	"testing"

	"github.com/cuevox/cue-core/core/directives"
)

func TestInputGateOfferAndResolve(t *testing.T) {
	gate := newInputGate()
	if gate.isHeld() {
		t.Fatalf("expected a fresh gate released")
	}
	if pending := gate.pendingDirective(); pending != nil {
		t.Fatalf("expected no pending directive, got %s", pending.ID())
	}

	directive := directives.NewYesNo("Continue?")
	gate.offer(directive)

	if !gate.isHeld() {
		t.Fatalf("expected the gate held after an offer")
	}
	if pending := gate.pendingDirective(); pending == nil || pending.ID() != directive.ID() {
		t.Fatalf("expected directive %s pending", directive.ID())
	}

	if !gate.resolve(directive.ID()) {
		t.Fatalf("expected the resolution applied")
	}
	if gate.isHeld() {
		t.Fatalf("expected the gate released after resolution")
	}

	// Resolution is idempotent per directive.
	if gate.resolve(directive.ID()) {
		t.Fatalf("expected the repeated resolution rejected")
	}
}

func TestInputGateResolveUnknownDirective(t *testing.T) {
	gate := newInputGate()
	if gate.resolve("never-offered") {
		t.Fatalf("expected resolution of an unknown directive rejected")
	}

	if _, ok := gate.lookup("never-offered"); ok {
		t.Fatalf("expected lookup of an unknown directive to fail")
	}
}

func TestInputGateSecondOfferReplacesWithoutQueueing(t *testing.T) {
	gate := newInputGate()

	first := directives.NewYesNo("First?")
	second := directives.NewYesNo("Second?")
	gate.offer(first)
	gate.offer(second)

	if pending := gate.pendingDirective(); pending == nil || pending.ID() != second.ID() {
		t.Fatalf("expected the newest offer pending")
	}

	// Resolving either offered directive releases the gate; nothing queues
	// behind it.
	if !gate.resolve(first.ID()) {
		t.Fatalf("expected the older directive still resolvable")
	}
	if gate.isHeld() {
		t.Fatalf("expected the gate released")
	}
	if pending := gate.pendingDirective(); pending != nil {
		t.Fatalf("expected no pending directive after release, got %s", pending.ID())
	}

	// The newer directive resolves independently afterwards.
	if !gate.resolve(second.ID()) {
		t.Fatalf("expected the newer directive still resolvable")
	}
	if gate.resolve(second.ID()) {
		t.Fatalf("expected the repeated resolution rejected")
	}
}

func TestInputGateReofferAfterResolutionHoldsAgain(t *testing.T) {
	gate := newInputGate()

	first := directives.NewYesNo("First?")
	gate.offer(first)
	if !gate.resolve(first.ID()) {
		t.Fatalf("expected the resolution applied")
	}

	second := directives.NewSlider("How sure?", "not at all", "completely", "certainty")
	gate.offer(second)

	if !gate.isHeld() {
		t.Fatalf("expected the gate held by the new offer")
	}
	if pending := gate.pendingDirective(); pending == nil || pending.ID() != second.ID() {
		t.Fatalf("expected directive %s pending", second.ID())
	}
}
