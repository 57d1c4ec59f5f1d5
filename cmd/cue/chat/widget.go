package chat

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/confidence"
	"github.com/cuevox/cue-core/core/directives"
)

// confidence channels an approval widget can adjust.
const (
	channelHue = iota
	channelSaturation
	channelLightness
)

const (
	hueStep     = 15
	percentStep = 5
	sliderJump  = 10
)

// widget is the interactive rendering of one gating directive. The directive
// itself is immutable; the widget holds the in-progress value until the user
// resolves it, then renders dimmed with the value it was resolved at.
type widget struct {
	directive directives.Directive
	resolved  bool

	// accepted is the Yes/Approve cursor of yes_no and approval widgets.
	accepted bool
	// value is the slider position.
	value int
	// cursor is the highlighted choice option.
	cursor int
	// input collects the free-text answer.
	input textinput.Model
	// vector is the confidence attached to rich approval widgets.
	vector confidence.Vector
	// channel is the confidence channel the arrow keys adjust.
	channel int
}

func newWidget(directive directives.Directive) *widget {
	w := &widget{directive: directive, accepted: true}

	switch d := directive.(type) {
	case directives.Slider:
		w.value = (d.Min + d.Max) / 2
	case directives.Text:
		input := textinput.New()
		input.Placeholder = d.Placeholder
		input.CharLimit = 0
		input.Prompt = ""
		w.input = input
	case directives.Approval:
		// Mid-scale starting point: safe/approved-pattern, moderate, clear.
		w.vector = confidence.Vector{Hue: 150, Saturation: 60, Lightness: 60}
	}

	return w
}

func (w *widget) focus() tea.Cmd {
	if _, ok := w.directive.(directives.Text); ok {
		return w.input.Focus()
	}
	return nil
}

func (w *widget) blur() {
	if _, ok := w.directive.(directives.Text); ok {
		w.input.Blur()
	}
}

// handleKey applies one key press to the focused widget. It reports whether
// the key was consumed; enter triggers the resolution call on the session.
func (w *widget) handleKey(msg tea.KeyMsg, session *conversation.Session) (tea.Cmd, bool) {
	if w.resolved {
		return nil, false
	}

	switch d := w.directive.(type) {
	case directives.YesNo:
		return nil, w.handleDecisionKey(msg, func() {
			_ = session.ResolveYesNo(d.ID(), w.accepted)
		})

	case directives.Approval:
		if d.Generation == directives.ApprovalGenerationV1 && w.handleConfidenceKey(msg) {
			return nil, true
		}
		return nil, w.handleDecisionKey(msg, func() {
			var vector *confidence.Vector
			if d.Generation == directives.ApprovalGenerationV1 {
				attached := w.vector
				vector = &attached
			}
			_ = session.ResolveApproval(d.ID(), w.accepted, vector)
		})

	case directives.Slider:
		switch msg.String() {
		case "left":
			w.value = clamp(w.value-1, d.Min, d.Max)
		case "right":
			w.value = clamp(w.value+1, d.Min, d.Max)
		case "down":
			w.value = clamp(w.value-sliderJump, d.Min, d.Max)
		case "up":
			w.value = clamp(w.value+sliderJump, d.Min, d.Max)
		case "home":
			w.value = d.Min
		case "end":
			w.value = d.Max
		case "enter":
			_ = session.ResolveSlider(d.ID(), w.value)
		default:
			return nil, false
		}
		return nil, true

	case directives.Choice:
		switch msg.String() {
		case "up":
			if w.cursor > 0 {
				w.cursor--
			}
		case "down":
			if w.cursor < len(d.Options)-1 {
				w.cursor++
			}
		case "enter":
			_ = session.ResolveChoice(d.ID(), w.cursor)
		default:
			return nil, false
		}
		return nil, true

	case directives.Text:
		if msg.String() == "enter" {
			_ = session.ResolveText(d.ID(), w.input.Value())
			return nil, true
		}
		var cmd tea.Cmd
		w.input, cmd = w.input.Update(msg)
		return cmd, true
	}

	return nil, false
}

func (w *widget) handleDecisionKey(msg tea.KeyMsg, resolve func()) bool {
	switch msg.String() {
	case "left", "y", "Y":
		w.accepted = true
	case "right", "n", "N":
		w.accepted = false
	case "enter":
		resolve()
	default:
		return false
	}
	return true
}

// handleConfidenceKey adjusts the confidence vector of a rich approval:
// h/s/l pick the channel, up/down move it. Hue wraps, the percentages clamp.
func (w *widget) handleConfidenceKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "h":
		w.channel = channelHue
	case "s":
		w.channel = channelSaturation
	case "l":
		w.channel = channelLightness
	case "up", "down":
		delta := 1.0
		if msg.String() == "down" {
			delta = -1
		}
		switch w.channel {
		case channelHue:
			hue := w.vector.Hue + delta*hueStep
			for hue < 0 {
				hue += 360
			}
			for hue >= 360 {
				hue -= 360
			}
			w.vector.Hue = hue
		case channelSaturation:
			w.vector.Saturation = clampFloat(w.vector.Saturation+delta*percentStep, 0, 100)
		case channelLightness:
			w.vector.Lightness = clampFloat(w.vector.Lightness+delta*percentStep, 0, 100)
		}
	default:
		return false
	}
	return true
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func clampFloat(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
