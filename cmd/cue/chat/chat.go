// Package chat is the terminal front end of a conversation session: a
// bubbletea program rendering the message log, the turn state indicator, and
// the interactive widgets of embedded directives.
//
// The session and the program each run their own loop. Session events cross
// into the program as typed tea messages posted by the run callbacks; user
// actions cross back through exported Session methods only.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/turns"
)

// Options configure the chat surface.
type Options struct {
	// ServerLabel is shown in the header; typically the server URL or the
	// replay source.
	ServerLabel string
	// Version is the CLI version shown in the header.
	Version string
	// VoiceEnabled switches the capture key hints on.
	VoiceEnabled bool
}

type stateMsg struct{ state turns.State }

type messageMsg struct{ message conversation.Message }

type inputRequestedMsg struct{ directive directives.Directive }

type inputResolvedMsg struct{ directiveID string }

type interimMsg struct{ transcript string }

type captureFailedMsg struct{ reason string }

type channelMsg struct {
	connected bool
	reason    string
}

// tickMsg re-renders relative message ages; see ageTickInterval.
type tickMsg struct{}

// Run starts the session against the program and blocks until the program
// exits. The session is closed on the way out regardless of how the program
// ended.
func Run(ctx context.Context, session *conversation.Session, opts Options) error {
	program := tea.NewProgram(newModel(session, opts), tea.WithContext(ctx))

	go session.Run(ctx,
		conversation.WithStateChangedCallback(func(state turns.State) {
			program.Send(stateMsg{state: state})
		}),
		conversation.WithMessageCallback(func(message conversation.Message) {
			program.Send(messageMsg{message: message})
		}),
		conversation.WithInputRequestedCallback(func(directive directives.Directive) {
			program.Send(inputRequestedMsg{directive: directive})
		}),
		conversation.WithInputResolvedCallback(func(directiveID string) {
			program.Send(inputResolvedMsg{directiveID: directiveID})
		}),
		conversation.WithInterimTranscriptionCallback(func(transcript string) {
			program.Send(interimMsg{transcript: transcript})
		}),
		conversation.WithCaptureFailedCallback(func(reason string) {
			program.Send(captureFailedMsg{reason: reason})
		}),
		conversation.WithChannelStateCallback(func(connected bool, reason string) {
			program.Send(channelMsg{connected: connected, reason: reason})
		}),
	)

	_, err := program.Run()
	session.Close()
	return err
}
