package events

import "github.com/cuevox/cue-core/core/directives"

const (
	// KindInputGateAcquired identifies gate acquisition by a rendered directive.
	KindInputGateAcquired Kind = "input_gate.acquired"
	// KindInputGateReleased identifies gate release on directive resolution.
	KindInputGateReleased Kind = "input_gate.released"
)

// InputGateAcquired marks a gating directive taking ownership of the input
// gate. Free-text submission and capture start are no-ops while it is held.
type InputGateAcquired struct {
	Base
	Directive directives.Directive
}

// NewInputGateAcquired creates an input gate acquired event.
func NewInputGateAcquired(directive directives.Directive) InputGateAcquired {
	return InputGateAcquired{Base: NewBase(KindInputGateAcquired), Directive: directive}
}

// InputGateReleased marks a directive resolution clearing the gate flag.
type InputGateReleased struct {
	Base
	DirectiveID string
}

// NewInputGateReleased creates an input gate released event.
func NewInputGateReleased(directiveID string) InputGateReleased {
	return InputGateReleased{Base: NewBase(KindInputGateReleased), DirectiveID: directiveID}
}
