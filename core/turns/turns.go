package turns

// State is the conversational turn state. The values are the wire strings
// carried by state_change events.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateThinking     State = "thinking"
	StateSpeaking     State = "speaking"
)

// ParseState maps a wire string onto a State. Unknown strings are rejected
// rather than coerced so a misbehaving remote cannot invent states.
func ParseState(raw string) (State, bool) {
	switch State(raw) {
	case StateIdle, StateRecording, StateTranscribing, StateThinking, StateSpeaking:
		return State(raw), true
	}

	return "", false
}

// Role identifies who authored a rendered message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)
