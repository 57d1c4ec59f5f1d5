package directives

import (
	"encoding/json"
	"fmt"

	"github.com/cuevox/cue-core/core/confidence"
)

// Response is the encoded outcome of resolving a directive. Echo is appended
// to the message log, Text goes out as a text message, and Payload, when
// present, additionally goes out as a structured input resolution.
type Response struct {
	Echo    string
	Text    string
	Payload *ResponsePayload
}

// ResponsePayload is the structured body of an input resolution. It always
// carries the directive's semantic label or question together with the
// resolved value; the remaining fields depend on kind and generation.
type ResponsePayload struct {
	Type          Kind               `json:"type"`
	Question      string             `json:"question,omitempty"`
	SemanticLabel string             `json:"semantic_label,omitempty"`
	Value         any                `json:"value"`
	Option        json.RawMessage    `json:"option,omitempty"`
	Approval      *ApprovalDetail    `json:"approval,omitempty"`
	Confidence    *confidence.Vector `json:"confidence,omitempty"`
}

// ApprovalDetail echoes the full approval descriptor back to the remote side.
type ApprovalDetail struct {
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	Description string `json:"description,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// EncodeYesNo encodes a yes/no resolution. The outbound text is the bare
// decision word; the log echo carries the "Selected:" prefix.
func EncodeYesNo(directive YesNo, accepted bool) Response {
	text := "No"
	if accepted {
		text = "Yes"
	}

	return Response{Echo: "Selected: " + text, Text: text}
}

// EncodeSlider encodes a slider resolution.
func EncodeSlider(directive Slider, value int) Response {
	text := labeledValue(directive.SemanticLabel, directive.Question, fmt.Sprintf("%d", value))
	return Response{
		Echo: text,
		Text: text,
		Payload: &ResponsePayload{
			Type:          KindSlider,
			Question:      directive.Question,
			SemanticLabel: directive.SemanticLabel,
			Value:         value,
		},
	}
}

// EncodeText encodes a free-text resolution; the value is passed verbatim.
func EncodeText(directive Text, value string) Response {
	text := labeledValue(directive.SemanticLabel, directive.Question, value)
	return Response{
		Echo: text,
		Text: text,
		Payload: &ResponsePayload{
			Type:          KindText,
			Question:      directive.Question,
			SemanticLabel: directive.SemanticLabel,
			Value:         value,
		},
	}
}

// EncodeChoice encodes a selected option. The visible echo is the option's
// label; the payload carries the full option object.
func EncodeChoice(directive Choice, option ChoiceOption) Response {
	return Response{
		Echo: option.Label,
		Text: option.Label,
		Payload: &ResponsePayload{
			Type:     KindChoice,
			Question: directive.Question,
			Value:    option.Label,
			Option:   option.Raw,
		},
	}
}

// EncodeApproval encodes an approval decision. V0 directives produce the
// terse decision word; V1 directives produce the decision with its action
// context and carry the descriptor, plus the confidence vector when one was
// attached to the widget.
func EncodeApproval(directive Approval, approved bool, vector *confidence.Vector) Response {
	decision := "Reject"
	if approved {
		decision = "Approve"
	}

	if directive.Generation == ApprovalGenerationV0 {
		return Response{
			Echo: decision,
			Text: decision,
			Payload: &ResponsePayload{
				Type:     KindApproval,
				Question: directive.Action,
				Value:    decision,
			},
		}
	}

	text := fmt.Sprintf("%s (%s)", decision, directive.Action)
	if directive.Target != "" {
		text = fmt.Sprintf("%s (%s on %s)", decision, directive.Action, directive.Target)
	}

	return Response{
		Echo: text,
		Text: text,
		Payload: &ResponsePayload{
			Type:     KindApproval,
			Question: directive.Action,
			Value:    decision,
			Approval: &ApprovalDetail{
				Action:      directive.Action,
				Target:      directive.Target,
				Description: directive.Description,
				Preview:     directive.Preview,
			},
			Confidence: vector,
		},
	}
}

// labeledValue renders the shared slider/text template pair: the semantic
// label wins, the question form is the fallback.
func labeledValue(semanticLabel, question, value string) string {
	if semanticLabel != "" {
		return fmt.Sprintf("%s: %s", semanticLabel, value)
	}

	return fmt.Sprintf("[Response to \"%s\"]: %s", question, value)
}
