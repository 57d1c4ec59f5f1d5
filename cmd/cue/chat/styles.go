package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cuevox/cue-core/core/turns"
)

// stateColors are the indicator colors of the five turn states.
var stateColors = map[turns.State]lipgloss.Color{
	turns.StateIdle:         lipgloss.Color("#333333"),
	turns.StateRecording:    lipgloss.Color("#FF0000"),
	turns.StateTranscribing: lipgloss.Color("#FFA500"),
	turns.StateThinking:     lipgloss.Color("#0080FF"),
	turns.StateSpeaking:     lipgloss.Color("#00FF00"),
}

type styles struct {
	header lipgloss.Style
	muted  lipgloss.Style

	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	systemLine     lipgloss.Style
	parseError     lipgloss.Style

	widgetFrame   lipgloss.Style
	widgetFocused lipgloss.Style
	widgetDone    lipgloss.Style
	question      lipgloss.Style
	selected      lipgloss.Style
	unselected    lipgloss.Style

	gateNotice lipgloss.Style
	statusBar  lipgloss.Style
}

func defaultStyles() styles {
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	return styles{
		header: lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),

		userLabel:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		assistantLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		systemLine:     lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		parseError:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),

		widgetFrame:   frame,
		widgetFocused: frame.BorderForeground(lipgloss.Color("81")),
		widgetDone:    frame.BorderForeground(lipgloss.Color("240")).Foreground(lipgloss.Color("243")),
		question:      lipgloss.NewStyle().Bold(true),
		selected:      lipgloss.NewStyle().Reverse(true).Padding(0, 1),
		unselected:    lipgloss.NewStyle().Padding(0, 1),

		gateNotice: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		statusBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
}
