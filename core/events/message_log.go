package events

import (
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/turns"
)

// KindMessageAppended identifies messages that entered the log.
const KindMessageAppended Kind = "message_log.appended"

// MessageAppended carries a message that passed the dedup guard. Segments is
// populated for assistant messages only; it holds the scanned layout the
// rendering layer owns for the lifetime of the message.
type MessageAppended struct {
	Base
	ID       string
	Role     turns.Role
	Text     string
	Segments []directives.Segment
}

// NewMessageAppended creates a message appended event.
func NewMessageAppended(id string, role turns.Role, text string, segments []directives.Segment) MessageAppended {
	return MessageAppended{Base: NewBase(KindMessageAppended), ID: id, Role: role, Text: text, Segments: segments}
}
