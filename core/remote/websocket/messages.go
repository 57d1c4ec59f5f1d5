package websocket

import "encoding/json"

// Wire message types. Inbound and outbound messages share one envelope shape:
// a type tag plus a type-specific payload object.
const (
	messageTypeStateChange   = "state_change"
	messageTypeTranscription = "transcription"
	messageTypeResponse      = "response"
	messageTypeError         = "error"

	messageTypeTextMessage   = "text_message"
	messageTypeInterrupt     = "interrupt"
	messageTypeInputResponse = "input_response"
	messageTypeAudioData     = "audio_data"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type statePayload struct {
	State string `json:"state"`
}

type textPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// audioPayload carries one capture frame, base64 encoded so the whole
// envelope stays a text frame.
type audioPayload struct {
	Audio string `json:"audio"`
}
