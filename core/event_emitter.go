package conversation

import events "github.com/cuevox/cue-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.TurnStateChanged:
			if opts.onStateChanged != nil {
				opts.onStateChanged(typedEvent.State)
			}
		case events.MessageAppended:
			if opts.onMessage != nil {
				opts.onMessage(Message{
					ID:        typedEvent.ID,
					Role:      typedEvent.Role,
					Text:      typedEvent.Text,
					Segments:  typedEvent.Segments,
					CreatedAt: typedEvent.Timestamp(),
				})
			}
		case events.InputGateAcquired:
			if opts.onInputRequested != nil {
				opts.onInputRequested(typedEvent.Directive)
			}
		case events.InputGateReleased:
			if opts.onInputResolved != nil {
				opts.onInputResolved(typedEvent.DirectiveID)
			}
		case events.UserAudioFrame:
			if opts.onInputAudio != nil {
				opts.onInputAudio(typedEvent.Audio)
			}
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptInterimUpdated:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.CaptureFailed:
			if opts.onCaptureFailed != nil {
				opts.onCaptureFailed(typedEvent.Reason)
			}
		case events.ChannelConnected:
			if opts.onChannelStateChanged != nil {
				opts.onChannelStateChanged(true, "")
			}
		case events.ChannelDisconnected:
			if opts.onChannelStateChanged != nil {
				opts.onChannelStateChanged(false, typedEvent.Reason)
			}
		}
	}
}
