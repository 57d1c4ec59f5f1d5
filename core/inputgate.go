package conversation

import (
	"github.com/cuevox/cue-core/core/directives"
)

// inputGate is the single pending-input resource of a session. While held,
// free-text submission and capture start are disabled.
//
// The gate deliberately stays permissive about overlap: offering a second
// directive while the first is unresolved re-acquires the flag without
// queueing, and resolving any offered directive clears it, even when a newer
// directive is still unresolved. Resolution is idempotent per directive.
//
// Fields are guarded by the owning session's mutex.
type inputGate struct {
	held bool
	// pending references the most recently offered directive.
	pending directives.Directive

	offered  map[string]directives.Directive
	resolved map[string]struct{}
}

func newInputGate() inputGate {
	return inputGate{
		offered:  map[string]directives.Directive{},
		resolved: map[string]struct{}{},
	}
}

func (g *inputGate) offer(directive directives.Directive) {
	if directive == nil {
		return
	}

	g.offered[directive.ID()] = directive
	g.pending = directive
	g.held = true
}

func (g *inputGate) lookup(directiveID string) (directives.Directive, bool) {
	directive, ok := g.offered[directiveID]
	return directive, ok
}

// resolve marks the directive as resolved and clears the gate. It reports
// false when the directive was already resolved, in which case nothing
// changes.
func (g *inputGate) resolve(directiveID string) bool {
	if _, ok := g.offered[directiveID]; !ok {
		return false
	}
	if _, done := g.resolved[directiveID]; done {
		return false
	}

	g.resolved[directiveID] = struct{}{}
	g.held = false
	g.pending = nil
	return true
}

func (g *inputGate) isHeld() bool { return g.held }

func (g *inputGate) pendingDirective() directives.Directive {
	if !g.held {
		return nil
	}
	return g.pending
}
