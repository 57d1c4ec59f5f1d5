package events

const (
	// KindChannelConnected identifies (re)establishment of the server channel.
	KindChannelConnected Kind = "channel.connected"
	// KindChannelDisconnected identifies loss of the server channel.
	KindChannelDisconnected Kind = "channel.disconnected"
)

// ChannelConnected marks the server channel as established.
type ChannelConnected struct{ Base }

// NewChannelConnected creates a channel connected event.
func NewChannelConnected() ChannelConnected {
	return ChannelConnected{Base: NewBase(KindChannelConnected)}
}

// ChannelDisconnected marks the server channel as lost. Reason is empty for
// clean shutdowns.
type ChannelDisconnected struct {
	Base
	Reason string
}

// NewChannelDisconnected creates a channel disconnected event.
func NewChannelDisconnected(reason string) ChannelDisconnected {
	return ChannelDisconnected{Base: NewBase(KindChannelDisconnected), Reason: reason}
}
