package directives

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	introducerYesNo    = "[YES_NO:"
	introducerInput    = "[INPUT:"
	introducerApproval = "[APPROVAL:"
	introducerSlider   = "[SLIDER:"
)

var introducers = []string{introducerYesNo, introducerInput, introducerApproval, introducerSlider}

// legacySliderBounds matches the "<min>,<max>,<step>:" prefix of the legacy
// slider form. The numbers are recognized so the question can be isolated,
// but the directive always uses the default 0-100 bounds.
var legacySliderBounds = regexp.MustCompile(`^\s*-?\d+\s*,\s*-?\d+\s*,\s*-?\d+\s*:`)

// Scan splits an assistant message into ordered segments. Directives are
// identified strictly in left-to-right order of their introducer position
// regardless of kind. Plain-text runs between and around directives are kept
// with their surrounding whitespace trimmed at run edges only. Introducers
// that never complete (no closing bracket, no balanced brace run) stay part
// of the surrounding plain text.
func Scan(content string) []Segment {
	segments := []Segment{}
	runStart := 0
	cursor := 0

	flushRun := func(end int) {
		if end <= runStart {
			return
		}
		run := content[runStart:end]
		if text := strings.TrimSpace(run); text != "" {
			segments = append(segments, PlainText{segmentSource: segmentSource{source: run}, Text: text})
		}
	}

	for cursor < len(content) {
		start, introducer := nextIntroducer(content, cursor)
		if start < 0 {
			break
		}

		segment, end, ok := scanDirective(content, start, introducer)
		if !ok {
			// Non-matching introducer: leave it to the surrounding plain
			// text and keep scanning after it.
			cursor = start + len(introducer)
			continue
		}

		flushRun(start)
		if segment != nil {
			segments = append(segments, segment)
		} else {
			logger.Warn("dropping structured input with unknown type",
				"span", content[start:end])
		}
		runStart = end
		cursor = end
	}

	flushRun(len(content))
	return segments
}

// nextIntroducer returns the earliest introducer occurrence at or after
// cursor, or -1 when none remains.
func nextIntroducer(content string, cursor int) (int, string) {
	earliest := -1
	found := ""
	for _, introducer := range introducers {
		at := strings.Index(content[cursor:], introducer)
		if at < 0 {
			continue
		}
		at += cursor
		if earliest < 0 || at < earliest {
			earliest = at
			found = introducer
		}
	}
	return earliest, found
}

// scanDirective extracts the directive starting at the introducer. It returns
// the segment (nil for dropped unknown subtypes), the index just past the
// consumed span, and whether the introducer matched at all.
func scanDirective(content string, start int, introducer string) (Segment, int, bool) {
	switch introducer {
	case introducerYesNo:
		return scanBracketForm(content, start, introducer, func(body string) Directive {
			return NewYesNo(body)
		})
	case introducerSlider:
		return scanBracketForm(content, start, introducer, func(body string) Directive {
			question := body
			if bounds := legacySliderBounds.FindString(body); bounds != "" {
				question = strings.TrimSpace(body[len(bounds):])
			}
			return NewSlider(question, "", "", "")
		})
	case introducerInput:
		return scanBracedForm(content, start, introducer, parseInputPayload)
	case introducerApproval:
		return scanBracedForm(content, start, introducer, parseApprovalPayload)
	}
	return nil, 0, false
}

// scanBracketForm handles tags closed by the nearest following "]".
func scanBracketForm(content string, start int, introducer string, build func(body string) Directive) (Segment, int, bool) {
	bodyStart := start + len(introducer)
	close := strings.Index(content[bodyStart:], "]")
	if close < 0 {
		return nil, 0, false
	}

	end := bodyStart + close + 1
	body := strings.TrimSpace(content[bodyStart : end-1])
	return DirectiveRef{
		segmentSource: segmentSource{source: content[start:end]},
		Directive:     build(body),
	}, end, true
}

// scanBracedForm locates the first open brace after the introducer, isolates
// the balanced brace run, and hands the payload to parse. A trailing "]" is
// consumed when present so the tag reads as one span.
func scanBracedForm(content string, start int, introducer string, parse func(payload string) (Directive, bool)) (Segment, int, bool) {
	braceStart := strings.Index(content[start+len(introducer):], "{")
	if braceStart < 0 {
		return nil, 0, false
	}
	braceStart += start + len(introducer)

	braceEnd, balanced := balancedBraceSpan(content, braceStart)
	if !balanced {
		return nil, 0, false
	}

	end := braceEnd
	for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
		end++
	}
	if end < len(content) && content[end] == ']' {
		end++
	} else {
		end = braceEnd
	}

	payload := content[braceStart:braceEnd]
	span := segmentSource{source: content[start:end]}

	directive, ok := parse(payload)
	if !ok {
		return ParseError{segmentSource: span, Raw: payload}, end, true
	}
	if directive == nil {
		// Unknown subtype: consumed but dropped.
		return nil, end, true
	}

	return DirectiveRef{segmentSource: span, Directive: directive}, end, true
}

// balancedBraceSpan returns the index just past the brace run opening at
// start, counting every brace including those nested in arrays and objects.
// The second return is false when the run never rebalances before the input
// ends. Braces inside string literals are counted too; that matches the wire
// protocol's definition of the payload span.
func balancedBraceSpan(content string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

type inputPayload struct {
	Type          string            `json:"type" jsonschema:"enum=slider,enum=text,enum=choice"`
	Question      string            `json:"question,omitempty"`
	Placeholder   string            `json:"placeholder,omitempty"`
	SemanticLabel string            `json:"semantic_label,omitempty"`
	Scale         *inputScale       `json:"scale,omitempty"`
	Options       []json.RawMessage `json:"options,omitempty"`
}

type inputScale struct {
	Low  string `json:"low,omitempty"`
	High string `json:"high,omitempty"`
}

type approvalPayload struct {
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	Description string `json:"description,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// parseInputPayload decodes an "[INPUT:]" payload. It returns (nil, true) for
// well-formed payloads of an unknown subtype, which the scanner drops.
func parseInputPayload(payload string) (Directive, bool) {
	var decoded inputPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, false
	}

	switch decoded.Type {
	case "slider":
		lowLabel, highLabel := "", ""
		if decoded.Scale != nil {
			lowLabel, highLabel = decoded.Scale.Low, decoded.Scale.High
		}
		return NewSlider(decoded.Question, lowLabel, highLabel, decoded.SemanticLabel), true
	case "text":
		return NewText(decoded.Question, decoded.Placeholder, decoded.SemanticLabel), true
	case "choice":
		options := make([]ChoiceOption, 0, len(decoded.Options))
		for _, raw := range decoded.Options {
			options = append(options, decodeChoiceOption(raw))
		}
		return NewChoice(decoded.Question, options), true
	default:
		return nil, true
	}
}

// decodeChoiceOption accepts either a bare string or an object with a label.
func decodeChoiceOption(raw json.RawMessage) ChoiceOption {
	var label string
	if err := json.Unmarshal(raw, &label); err == nil {
		return ChoiceOption{Label: label, Raw: raw}
	}

	var labeled struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal(raw, &labeled); err == nil {
		return ChoiceOption{Label: labeled.Label, Raw: raw}
	}

	return ChoiceOption{Label: string(raw), Raw: raw}
}

func parseApprovalPayload(payload string) (Directive, bool) {
	var decoded approvalPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, false
	}

	return NewApproval(decoded.Action, decoded.Target, decoded.Description, decoded.Preview), true
}
