package conversation

import (
	"context"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/remote"
	"github.com/cuevox/cue-core/core/speechtotext"
	"github.com/cuevox/cue-core/core/texttospeech"
	"github.com/cuevox/cue-core/core/turns"
)

type SessionOption func(*Session)

// ServerChannel is the transport to the conversation server. Implementations
// dispatch inbound events through the callbacks registered at Connect and
// stay safe to call before Connect.
type ServerChannel interface {
	Connect(ctx context.Context, opts ...remote.ChannelOption) error
	SendText(text string) error
	SendInputResponse(payload directives.ResponsePayload) error
	SendInterrupt() error
	SendAudio(audio []byte) error
}

func WithServerChannel(client ServerChannel) SessionOption {
	return func(s *Session) {
		s.channel.set(client)
	}
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

func WithSpeechToTextClient(client SpeechToText) SessionOption {
	return func(s *Session) {
		s.speechToText.set(client)
	}
}

type TextToSpeech interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error)
}

func WithTextToSpeechClient(client TextToSpeech) SessionOption {
	return func(s *Session) {
		s.textToSpeech.set(client)
	}
}

type AudioInput interface {
	audioInputBase
}

type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) SessionOption {
	return func(s *Session) { s.audioInput.Set(client) }
}

type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

func WithAudioOutput(client AudioOutput) SessionOption {
	return func(s *Session) { s.audioOutput.set(client) }
}

type RunOptions struct {
	onStateChanged         func(state turns.State)
	onMessage              func(message Message)
	onInputRequested       func(directive directives.Directive)
	onInputResolved        func(directiveID string)
	onTranscription        func(transcript string)
	onInterimTranscription func(transcript string)
	onSpeakingStateChanged func(isSpeaking bool)
	onInputAudio           func(audio []byte)
	onCaptureFailed        func(reason string)
	onChannelStateChanged  func(connected bool, reason string)
}

type RunOption func(*RunOptions)

// WithStateChangedCallback registers a callback for turn state updates, both
// local optimistic transitions and authoritative server pushes.
func WithStateChangedCallback(callback func(state turns.State)) RunOption {
	return func(o *RunOptions) {
		o.onStateChanged = callback
	}
}

// WithMessageCallback registers a callback for messages that passed the
// dedup guard and entered the log.
func WithMessageCallback(callback func(message Message)) RunOption {
	return func(o *RunOptions) {
		o.onMessage = callback
	}
}

// WithInputRequestedCallback registers a callback for gating directives the
// moment they acquire the input gate.
func WithInputRequestedCallback(callback func(directive directives.Directive)) RunOption {
	return func(o *RunOptions) {
		o.onInputRequested = callback
	}
}

// WithInputResolvedCallback registers a callback for directive resolutions
// releasing the input gate.
func WithInputResolvedCallback(callback func(directiveID string)) RunOption {
	return func(o *RunOptions) {
		o.onInputResolved = callback
	}
}

// WithTranscriptionCallback registers a callback for final transcriptions
// produced by a configured local speech-to-text client.
func WithTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscription = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions produced by a configured local speech-to-text client. An
// empty transcript clears the previous interim snapshot.
func WithInterimTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onInterimTranscription = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for speech activity
// detected by a configured local speech-to-text client.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) RunOption {
	return func(o *RunOptions) {
		o.onSpeakingStateChanged = callback
	}
}

// WithInputAudioCallback registers a callback for raw input audio chunks.
//
// The provided slice is passed through as-is (no defensive copy). The
// callback runs inline on the input-audio path and should not block.
func WithInputAudioCallback(callback func(audio []byte)) RunOption {
	return func(o *RunOptions) {
		o.onInputAudio = callback
	}
}

// WithCaptureFailedCallback registers a callback for capture device
// acquisition failures. After a failure voice input stays disabled for the
// rest of the session.
func WithCaptureFailedCallback(callback func(reason string)) RunOption {
	return func(o *RunOptions) {
		o.onCaptureFailed = callback
	}
}

// WithChannelStateCallback registers a callback for server channel
// connectivity changes. Reason is empty on connect and on clean shutdown.
func WithChannelStateCallback(callback func(connected bool, reason string)) RunOption {
	return func(o *RunOptions) {
		o.onChannelStateChanged = callback
	}
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
