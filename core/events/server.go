package events

const (
	// KindServerStateChanged identifies authoritative turn state pushed by the
	// server.
	KindServerStateChanged Kind = "server.state_changed"
	// KindServerTranscription identifies a final voice transcript produced
	// server side.
	KindServerTranscription Kind = "server.transcription"
	// KindServerResponse identifies assistant response text.
	KindServerResponse Kind = "server.response"
	// KindServerError identifies a server-reported failure.
	KindServerError Kind = "server.error"
)

// ServerStateChanged carries the raw wire value of a server state push. The
// session validates it on application; unknown values are dropped there.
type ServerStateChanged struct {
	Base
	State string
}

// NewServerStateChanged creates a server state changed event.
func NewServerStateChanged(state string) ServerStateChanged {
	return ServerStateChanged{Base: NewBase(KindServerStateChanged), State: state}
}

// ServerTranscription carries a final transcript of captured user speech.
type ServerTranscription struct {
	Base
	Text string
}

// NewServerTranscription creates a server transcription event.
func NewServerTranscription(text string) ServerTranscription {
	return ServerTranscription{Base: NewBase(KindServerTranscription), Text: text}
}

// ServerResponse carries one assistant message, possibly with embedded
// structured directives.
type ServerResponse struct {
	Base
	Text string
}

// NewServerResponse creates a server response event.
func NewServerResponse(text string) ServerResponse {
	return ServerResponse{Base: NewBase(KindServerResponse), Text: text}
}

// ServerError carries a server-reported failure message.
type ServerError struct {
	Base
	Message string
}

// NewServerError creates a server error event.
func NewServerError(message string) ServerError {
	return ServerError{Base: NewBase(KindServerError), Message: message}
}
