package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/turns"
)

const sliderBarWidth = 30

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	for _, message := range m.messages {
		b.WriteString(m.renderMessage(message))
		b.WriteString("\n")
	}

	if m.interim != "" {
		b.WriteString(m.styles.muted.Render("… " + m.interim))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.gateHeld() {
		b.WriteString(m.styles.gateNotice.Render("Answer the pending request above to continue."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	return b.String()
}

func (m *model) renderHeader() string {
	title := "cue"
	if m.opts.Version != "" {
		title += " v" + m.opts.Version
	}
	if m.opts.ServerLabel != "" {
		title += "  " + m.opts.ServerLabel
	}

	indicator := lipgloss.NewStyle().
		Foreground(stateColors[m.state]).
		Render("●")
	state := string(m.state)
	if m.state == turns.StateThinking || m.state == turns.StateTranscribing {
		state += " " + m.spinner.View()
	}

	left := m.styles.header.Render(title)
	right := indicator + " " + state
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}

func (m *model) renderMessage(message conversation.Message) string {
	age := m.styles.muted.Render(conversation.RelativeAge(message.CreatedAt, m.now))

	switch message.Role {
	case turns.RoleSystem:
		return m.styles.systemLine.Render(m.wrap(message.Text)) + "  " + age

	case turns.RoleUser:
		return m.styles.userLabel.Render("You") + "  " + age + "\n" + m.wrap(message.Text)

	default:
		var b strings.Builder
		b.WriteString(m.styles.assistantLabel.Render("Assistant") + "  " + age)
		if len(message.Segments) == 0 {
			b.WriteString("\n" + m.wrap(message.Text))
			return b.String()
		}
		for _, segment := range message.Segments {
			b.WriteString("\n")
			b.WriteString(m.renderSegment(segment))
		}
		return b.String()
	}
}

func (m *model) renderSegment(segment directives.Segment) string {
	switch segment := segment.(type) {
	case directives.PlainText:
		return m.wrap(segment.Text)
	case directives.ParseError:
		return m.styles.parseError.Render(m.wrap(segment.Raw))
	case directives.DirectiveRef:
		if w, ok := m.widgets[segment.Directive.ID()]; ok {
			return m.renderWidget(w)
		}
		return m.styles.muted.Render("[input request]")
	default:
		return ""
	}
}

func (m *model) renderWidget(w *widget) string {
	frame := m.styles.widgetFrame
	if w.resolved {
		frame = m.styles.widgetDone
	} else if focused := m.focusedWidget(); focused == w {
		frame = m.styles.widgetFocused
	}

	var body string
	switch d := w.directive.(type) {
	case directives.YesNo:
		body = m.styles.question.Render(d.Question) + "\n" +
			m.renderDecision(w, "Yes", "No")
	case directives.Slider:
		body = m.renderSlider(w, d)
	case directives.Text:
		body = m.styles.question.Render(d.Question) + "\n" + w.input.View()
	case directives.Choice:
		body = m.renderChoice(w, d)
	case directives.Approval:
		body = m.renderApproval(w, d)
	}

	return frame.Render(body)
}

func (m *model) renderDecision(w *widget, yes, no string) string {
	yesStyle, noStyle := m.styles.unselected, m.styles.selected
	if w.accepted {
		yesStyle, noStyle = m.styles.selected, m.styles.unselected
	}
	return yesStyle.Render(yes) + " " + noStyle.Render(no)
}

func (m *model) renderSlider(w *widget, d directives.Slider) string {
	span := d.Max - d.Min
	if span <= 0 {
		span = 1
	}
	knob := (w.value - d.Min) * (sliderBarWidth - 1) / span
	bar := strings.Repeat("─", knob) + "●" + strings.Repeat("─", sliderBarWidth-1-knob)

	label := d.SemanticLabel
	if label == "" {
		label = "value"
	}

	var b strings.Builder
	b.WriteString(m.styles.question.Render(d.Question))
	b.WriteString("\n")
	if d.LowLabel != "" || d.HighLabel != "" {
		b.WriteString(m.styles.muted.Render(d.LowLabel) + " ")
	}
	b.WriteString(bar)
	if d.LowLabel != "" || d.HighLabel != "" {
		b.WriteString(" " + m.styles.muted.Render(d.HighLabel))
	}
	b.WriteString(fmt.Sprintf("  %s: %d", label, w.value))
	return b.String()
}

func (m *model) renderChoice(w *widget, d directives.Choice) string {
	var b strings.Builder
	b.WriteString(m.styles.question.Render(d.Question))
	for index, option := range d.Options {
		b.WriteString("\n")
		if index == w.cursor {
			b.WriteString(m.styles.selected.Render(option.Label))
		} else {
			b.WriteString(m.styles.unselected.Render(option.Label))
		}
	}
	return b.String()
}

func (m *model) renderApproval(w *widget, d directives.Approval) string {
	title := d.Action
	if d.Target != "" {
		title += " on " + d.Target
	}

	var b strings.Builder
	b.WriteString(m.styles.question.Render("Approval: " + title))
	if d.Description != "" {
		b.WriteString("\n" + m.wrap(d.Description))
	}
	if d.Preview != "" {
		b.WriteString("\n" + m.styles.muted.Render(m.wrap(d.Preview)))
	}

	if d.Generation == directives.ApprovalGenerationV1 {
		b.WriteString("\n" + m.renderConfidence(w))
	}

	b.WriteString("\n" + m.renderDecision(w, "Approve", "Reject"))
	return b.String()
}

// renderConfidence shows the vector both ways it is interpreted: as a color
// swatch and as the domain/conviction/clarity reading.
func (m *model) renderConfidence(w *widget) string {
	swatch := lipgloss.NewStyle().
		Foreground(lipgloss.Color(w.vector.Hex())).
		Render("██")
	reading := w.vector.Interpret()

	channels := []string{
		fmt.Sprintf("h %.0f°", w.vector.Hue),
		fmt.Sprintf("s %.0f%%", w.vector.Saturation),
		fmt.Sprintf("l %.0f%%", w.vector.Lightness),
	}
	channels[w.channel] = m.styles.selected.Render(channels[w.channel])

	return fmt.Sprintf("%s %s  %s",
		swatch,
		strings.Join(channels, " "),
		m.styles.muted.Render(reading.Domain+" · "+reading.Conviction+" · "+reading.Clarity),
	)
}

func (m *model) renderStatusBar() string {
	parts := []string{}

	if m.connected {
		parts = append(parts, "connected")
	} else if m.channelNote != "" {
		parts = append(parts, "disconnected: "+m.channelNote)
	} else {
		parts = append(parts, "offline")
	}

	if m.captureNote != "" {
		parts = append(parts, m.captureNote)
	} else if m.opts.VoiceEnabled {
		parts = append(parts, "ctrl+r talk")
	}
	if m.state == turns.StateSpeaking {
		parts = append(parts, "ctrl+x interrupt")
	}
	if m.gateHeld() {
		parts = append(parts, "tab next request")
	}

	return m.styles.statusBar.Render(strings.Join(parts, "  ·  "))
}

func (m *model) wrap(text string) string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return strings.TrimSuffix(wordwrap.String(text, width), "\n")
}
