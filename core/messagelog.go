package conversation

import (
	"fmt"
	"time"

	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/turns"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

const (
	// dedupWindow is how long an appended fingerprint suppresses duplicates.
	dedupWindow = 1000 * time.Millisecond
	// fingerprintLength is the number of leading characters hashed into the
	// dedup fingerprint.
	fingerprintLength = 50
)

// Message is one rendered entry of the session log. Segments is populated for
// assistant messages only. Messages are never mutated after insertion.
type Message struct {
	ID        string
	Role      turns.Role
	Text      string
	Segments  []directives.Segment
	CreatedAt time.Time

	fingerprint string
}

// messageLog is the append-only session transcript with a dedup guard that
// absorbs the race between an optimistic local echo and the same message
// arriving over the channel.
//
// Fields are guarded by the owning session's mutex.
type messageLog struct {
	// now is stubbed in tests to step through the dedup window.
	now func() time.Time

	messages []Message
}

func newMessageLog() *messageLog {
	return &messageLog{now: time.Now}
}

// append inserts a message unless an entry with the same fingerprint was
// inserted within the dedup window. It reports whether the message entered
// the log.
func (l *messageLog) append(role turns.Role, text string, segments []directives.Segment) (Message, bool) {
	now := l.now()
	fingerprint := messageFingerprint(role, text)

	for i := len(l.messages) - 1; i >= 0; i-- {
		if now.Sub(l.messages[i].CreatedAt) >= dedupWindow {
			break
		}
		if l.messages[i].fingerprint == fingerprint {
			return Message{}, false
		}
	}

	message := Message{
		ID:          uuid.NewString(),
		Role:        role,
		Text:        text,
		Segments:    segments,
		CreatedAt:   now,
		fingerprint: fingerprint,
	}
	l.messages = append(l.messages, message)
	return message, true
}

// snapshot returns a deep copy of the log so callers never alias log-owned
// memory.
func (l *messageLog) snapshot() []Message {
	messages := []Message{}
	copier.Copy(&messages, l.messages)
	return messages
}

func (l *messageLog) len() int { return len(l.messages) }

func messageFingerprint(role turns.Role, text string) string {
	runes := []rune(text)
	if len(runes) > fingerprintLength {
		runes = runes[:fingerprintLength]
	}
	return string(role) + ":" + string(runes)
}

// RelativeAge renders the age of a message for display. Callers re-render on
// a periodic tick; the underlying timestamp never changes.
func RelativeAge(at, now time.Time) string {
	elapsed := now.Sub(at)
	switch {
	case elapsed < 15*time.Second:
		return "just now"
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	}
}
