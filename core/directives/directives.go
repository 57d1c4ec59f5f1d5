package directives

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Kind string

const (
	KindYesNo    Kind = "yes_no"
	KindSlider   Kind = "slider"
	KindText     Kind = "text"
	KindChoice   Kind = "choice"
	KindApproval Kind = "approval"
)

// Directive is a structured interactive request embedded in assistant text.
// Directives are immutable once created and are resolved at most once; the
// session tracks resolution, not the directive itself.
type Directive interface {
	Kind() Kind
	ID() string
}

type base struct {
	id string
}

func newBase() base {
	return base{id: uuid.NewString()}
}

func (b base) ID() string {
	return b.id
}

// YesNo asks a boolean question.
type YesNo struct {
	base
	Question string
}

// NewYesNo creates a yes/no directive.
func NewYesNo(question string) YesNo {
	return YesNo{base: newBase(), Question: question}
}

func (YesNo) Kind() Kind { return KindYesNo }

// Slider asks for an integer value on a fixed 0-100 scale.
type Slider struct {
	base
	Question      string
	LowLabel      string
	HighLabel     string
	SemanticLabel string
	Min           int
	Max           int
}

// NewSlider creates a slider directive with the fixed 0-100 bounds.
func NewSlider(question, lowLabel, highLabel, semanticLabel string) Slider {
	return Slider{
		base:          newBase(),
		Question:      question,
		LowLabel:      lowLabel,
		HighLabel:     highLabel,
		SemanticLabel: semanticLabel,
		Min:           0,
		Max:           100,
	}
}

func (Slider) Kind() Kind { return KindSlider }

// Text asks for a free-text answer.
type Text struct {
	base
	Question      string
	Placeholder   string
	SemanticLabel string
}

// NewText creates a free-text directive.
func NewText(question, placeholder, semanticLabel string) Text {
	return Text{base: newBase(), Question: question, Placeholder: placeholder, SemanticLabel: semanticLabel}
}

func (Text) Kind() Kind { return KindText }

// ChoiceOption is one selectable option of a choice directive. Raw preserves
// the full option object from the payload; resolutions send it back verbatim.
type ChoiceOption struct {
	Label string
	Raw   json.RawMessage
}

// Choice asks the user to pick one of an ordered set of options.
type Choice struct {
	base
	Question string
	Options  []ChoiceOption
}

// NewChoice creates a choice directive.
func NewChoice(question string, options []ChoiceOption) Choice {
	return Choice{base: newBase(), Question: question, Options: options}
}

func (Choice) Kind() Kind { return KindChoice }

// ApprovalGeneration selects which historical approval encoding a directive
// targets. The payload decides: a bare {action, target} object is V0, a
// payload carrying a description or preview is V1.
type ApprovalGeneration int

const (
	// ApprovalGenerationV0 is the terse form: the decision word alone.
	ApprovalGenerationV0 ApprovalGeneration = iota
	// ApprovalGenerationV1 is the rich form: decision plus action context and
	// an optional confidence vector in the structured payload.
	ApprovalGenerationV1
)

// Approval asks the user to approve or reject a proposed action.
type Approval struct {
	base
	Action      string
	Target      string
	Description string
	Preview     string
	Generation  ApprovalGeneration
}

// NewApproval creates an approval directive. The generation is derived from
// the populated fields.
func NewApproval(action, target, description, preview string) Approval {
	generation := ApprovalGenerationV1
	if description == "" && preview == "" {
		generation = ApprovalGenerationV0
	}

	return Approval{
		base:        newBase(),
		Action:      action,
		Target:      target,
		Description: description,
		Preview:     preview,
		Generation:  generation,
	}
}

func (Approval) Kind() Kind { return KindApproval }

// Segment is one contiguous unit of a scanned message. Source returns the
// original input span the segment covers, untrimmed, so concatenating the
// sources of all segments of a fully covered message reconstructs it.
type Segment interface {
	Source() string
}

type segmentSource struct {
	source string
}

func (s segmentSource) Source() string {
	return s.source
}

// PlainText is a prose run between directives. Text has the surrounding
// whitespace trimmed; Source keeps it.
type PlainText struct {
	segmentSource
	Text string
}

// DirectiveRef marks where a directive sat in the message.
type DirectiveRef struct {
	segmentSource
	Directive Directive
}

// ParseError is an inert fragment shown where a braced payload extracted but
// failed to decode. It never gates input.
type ParseError struct {
	segmentSource
	Raw string
}
