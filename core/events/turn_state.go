package events

import "github.com/cuevox/cue-core/core/turns"

// KindTurnStateChanged identifies turn state updates.
const KindTurnStateChanged Kind = "turn_state.changed"

// TurnStateChanged carries the new value of the session state cell.
type TurnStateChanged struct {
	Base
	State turns.State
}

// NewTurnStateChanged creates a turn state changed event.
func NewTurnStateChanged(state turns.State) TurnStateChanged {
	return TurnStateChanged{Base: NewBase(KindTurnStateChanged), State: state}
}
