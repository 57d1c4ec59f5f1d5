package chat

import (
	"strings"
	"testing"
	"time"

	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/turns"
)

func newTestModel(t *testing.T) *model {
	t.Helper()
	session := conversation.NewSession()
	t.Cleanup(session.Close)
	return newModel(session, Options{ServerLabel: "test", Version: "0.0.0"})
}

func TestInputRequestedFocusesNewestWidget(t *testing.T) {
	m := newTestModel(t)

	first := directives.NewYesNo("First?")
	second := directives.NewSlider("Second?", "", "", "")

	m.Update(inputRequestedMsg{directive: first})
	m.Update(inputRequestedMsg{directive: second})

	focused := m.focusedWidget()
	if focused == nil || focused.directive.ID() != second.ID() {
		t.Fatalf("expected the newest request to hold focus")
	}
	if m.input.Focused() {
		t.Fatalf("expected the free-text prompt to be blurred while widgets are pending")
	}
}

func TestInputResolvedRefocusesOldestPending(t *testing.T) {
	m := newTestModel(t)

	first := directives.NewYesNo("First?")
	second := directives.NewYesNo("Second?")

	m.Update(inputRequestedMsg{directive: first})
	m.Update(inputRequestedMsg{directive: second})
	m.Update(inputResolvedMsg{directiveID: second.ID()})

	focused := m.focusedWidget()
	if focused == nil || focused.directive.ID() != first.ID() {
		t.Fatalf("expected focus to fall back to the oldest unresolved widget")
	}

	m.Update(inputResolvedMsg{directiveID: first.ID()})
	if m.focusedWidget() != nil {
		t.Fatalf("expected no focused widget after all resolved")
	}
	if !m.input.Focused() {
		t.Fatalf("expected the free-text prompt to regain focus")
	}
}

func TestTabCyclesOnlyUnresolvedWidgets(t *testing.T) {
	m := newTestModel(t)

	first := directives.NewYesNo("First?")
	second := directives.NewYesNo("Second?")
	third := directives.NewYesNo("Third?")

	m.Update(inputRequestedMsg{directive: first})
	m.Update(inputRequestedMsg{directive: second})
	m.Update(inputRequestedMsg{directive: third})
	m.Update(inputResolvedMsg{directiveID: second.ID()})

	m.Update(keyPress("tab"))
	focused := m.focusedWidget()
	if focused == nil || focused.directive.ID() != first.ID() {
		t.Fatalf("expected tab to skip the resolved widget and wrap to the first")
	}

	m.Update(keyPress("tab"))
	focused = m.focusedWidget()
	if focused == nil || focused.directive.ID() != third.ID() {
		t.Fatalf("expected tab to move to the third widget")
	}
}

func TestStateChangeClearsInterimOutsideVoiceStates(t *testing.T) {
	m := newTestModel(t)

	m.Update(interimMsg{transcript: "hello wor"})
	m.Update(stateMsg{state: turns.StateRecording})
	if m.interim == "" {
		t.Fatalf("expected interim transcript to survive while recording")
	}

	m.Update(stateMsg{state: turns.StateThinking})
	if m.interim != "" {
		t.Fatalf("expected interim transcript to clear once the turn moved on")
	}
}

func TestViewRendersSegmentsAndWidgets(t *testing.T) {
	m := newTestModel(t)
	m.width = 100

	segments := directives.Scan(`Pick: [YES_NO: Proceed?] done. [INPUT: {"type": "oops", ]`)
	var offered directives.Directive
	for _, segment := range segments {
		if ref, ok := segment.(directives.DirectiveRef); ok {
			offered = ref.Directive
		}
	}
	if offered == nil {
		t.Fatalf("expected the scan to produce a directive")
	}

	m.Update(messageMsg{message: conversation.Message{
		ID:        "m1",
		Role:      turns.RoleAssistant,
		Text:      "ignored when segments are present",
		Segments:  segments,
		CreatedAt: time.Now(),
	}})
	m.Update(inputRequestedMsg{directive: offered})

	view := m.View()
	if !strings.Contains(view, "Proceed?") {
		t.Fatalf("expected the rendered view to contain the widget question, got:\n%s", view)
	}
	if !strings.Contains(view, "Pick:") || !strings.Contains(view, "done.") {
		t.Fatalf("expected the rendered view to contain the prose runs, got:\n%s", view)
	}
}

func TestCaptureFailureShowsInStatusBar(t *testing.T) {
	m := newTestModel(t)
	m.opts.VoiceEnabled = true

	m.Update(captureFailedMsg{reason: "no device"})

	if !strings.Contains(m.renderStatusBar(), "no device") {
		t.Fatalf("expected the capture failure to surface in the status bar")
	}
}
