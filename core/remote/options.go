// Package remote defines the client-side contract for conversation server
// channels: the callbacks a channel dispatches and the options used to
// register them at connect time.
package remote

type ChannelOptions struct {
	ConnectedCallback    func()
	DisconnectedCallback func(reason string)

	StateChangedCallback  func(state string)
	TranscriptionCallback func(text string)
	ResponseCallback      func(text string)
	ErrorCallback         func(message string)
}

type ChannelOption func(*ChannelOptions)

func WithConnectedCallback(callback func()) ChannelOption {
	return func(o *ChannelOptions) {
		o.ConnectedCallback = callback
	}
}

func WithDisconnectedCallback(callback func(reason string)) ChannelOption {
	return func(o *ChannelOptions) {
		o.DisconnectedCallback = callback
	}
}

// WithStateChangedCallback registers a callback for turn state pushes. The
// state is the raw wire value, left to the session to validate.
func WithStateChangedCallback(callback func(state string)) ChannelOption {
	return func(o *ChannelOptions) {
		o.StateChangedCallback = callback
	}
}

func WithTranscriptionCallback(callback func(text string)) ChannelOption {
	return func(o *ChannelOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithResponseCallback(callback func(text string)) ChannelOption {
	return func(o *ChannelOptions) {
		o.ResponseCallback = callback
	}
}

func WithErrorCallback(callback func(message string)) ChannelOption {
	return func(o *ChannelOptions) {
		o.ErrorCallback = callback
	}
}
