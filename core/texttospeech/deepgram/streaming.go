package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/cuevox/cue-core/core/texttospeech"
	"github.com/gorilla/websocket"
)

// streamingRequest is a single speech generation over one websocket. Text is
// tracked as segments: segment zero is in flight on the connection, later
// segments wait behind a mark and are only sent once the flush before them
// is confirmed.
type streamingRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	textBuffer   []string
	textBufferMu sync.Mutex

	options streamingRequestOptions

	textComplete bool
	cancelled    bool
	closed       bool

	report texttospeech.SpeechEndedReport
}

type streamingRequestOptions struct {
	texttospeech.TextToSpeechOptions
	Voice deepgramVoice
}

func (c *TextToSpeechClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	req := &streamingRequest{
		options: streamingRequestOptions{
			TextToSpeechOptions: texttospeech.TextToSpeechOptions{
				SpeechAudioCallback: func([]byte) {},
				SpeechMarkCallback:  func(string) {},
				SpeechEndedCallback: func(texttospeech.SpeechEndedReport) {},
				ErrorCallback:       func(error) {},
			},
			Voice: c.currentVoice(),
		},
	}

	for _, opt := range opts {
		opt(&req.options.TextToSpeechOptions)
	}

	if req.options.EncodingInfo.IsZero() {
		req.options.EncodingInfo = audio.GetDefaultEncodingInfo()
	}

	var err error
	if req.ws, err = connectWebsocket(ctx, req.options.Voice, req.options.EncodingInfo); err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	go req.processIncomingMessages()

	return req, nil
}

func connectWebsocket(ctx context.Context, voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	// TODO: Allow passing API key in constructor
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *streamingRequest) processIncomingMessages() {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				r.options.ErrorCallback(fmt.Errorf("websocket read failed: %w", err))
			}
			_ = r.Close()
			return
		}

		// Keep draining until the server closes the socket, but stop
		// delivering audio once the request is over so a cancelled
		// generation cannot leak chunks into playback.
		if r.isDone() {
			continue
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				r.options.ErrorCallback(fmt.Errorf("failed to unmarshal deepgram message: %w", err))
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.advanceTextBuffer()
			case "Warning":
				r.options.ErrorCallback(fmt.Errorf("deepgram warning: %s", parsedMsg.Description))
			}
		}
	}
}

// advanceTextBuffer reacts to a flush confirmation, which covers the oldest
// outstanding segment. Callbacks fire after the buffer lock is released so a
// listener can call back into the request without deadlocking.
func (r *streamingRequest) advanceTextBuffer() {
	var emissions []func()

	r.textBufferMu.Lock()

	if len(r.textBuffer) > 0 {
		marked := r.textBuffer[0]
		r.textBuffer = r.textBuffer[1:]
		emissions = append(emissions, func() { r.options.SpeechMarkCallback(marked) })
	}

	if len(r.textBuffer) == 0 && r.textComplete {
		// Nothing left to synthesize and no more text coming.
		emissions = append(emissions, func() { r.options.SpeechEndedCallback(r.report) })
		if err := r.closeLocked(); err != nil {
			emissions = append(emissions, func() {
				r.options.ErrorCallback(fmt.Errorf("failed to close after speech ended: %w", err))
			})
		}
	} else if len(r.textBuffer) > 0 {
		// Send the next segment, then request its confirmation if
		// anything waits behind it or it is the last text the request
		// will see.
		if r.textBuffer[0] != "" {
			if err := r.sendWebsocketMessage(speakMsg(r.textBuffer[0])); err != nil {
				emissions = append(emissions, func() {
					r.options.ErrorCallback(fmt.Errorf("failed to send buffered text: %w", err))
				})
			}
		}
		if len(r.textBuffer) > 1 || r.textComplete {
			if err := r.sendWebsocketMessage(flushMsg); err != nil {
				emissions = append(emissions, func() {
					r.options.ErrorCallback(fmt.Errorf("failed to request flush: %w", err))
				})
			}
		}
	}

	r.textBufferMu.Unlock()

	for _, emit := range emissions {
		emit()
	}
}

func (r *streamingRequest) SendText(text string) error {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}

	if len(r.textBuffer) == 0 {
		r.textBuffer = append(r.textBuffer, "")
	}

	if len(r.textBuffer) == 1 {
		if err := r.sendWebsocketMessage(speakMsg(text)); err != nil {
			return fmt.Errorf("failed to send websocket send text message: %w", err)
		}
	}
	r.textBuffer[len(r.textBuffer)-1] += text
	return nil
}

func (r *streamingRequest) Mark() error {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	} else if r.textComplete {
		return fmt.Errorf("streaming request text already completed")
	}

	if len(r.textBuffer) == 1 {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}

	// Deepgram sometimes drops text that arrives right after a flush, so
	// text after a mark is held back until the flush confirmation.
	r.textBuffer = append(r.textBuffer, "")

	return nil
}

func (r *streamingRequest) EndOfText() error {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if r.closed {
		return fmt.Errorf("streaming request closed")
	} else if r.cancelled {
		return fmt.Errorf("streaming request cancelled")
	}

	r.textComplete = true

	// The ended callback always fires from the read loop, after the final
	// flush confirmation. An empty request still gets one flush so there
	// is a confirmation to end on.
	if len(r.textBuffer) == 0 {
		r.textBuffer = append(r.textBuffer, "")
	}

	if len(r.textBuffer) == 1 {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
	}

	return nil
}

func (r *streamingRequest) Cancel() error {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()

	if r.closed {
		return fmt.Errorf("streaming request closed")
	}
	if r.cancelled {
		return nil
	}

	r.cancelled = true
	r.textBuffer = nil
	if err := r.sendWebsocketMessage(clearMsg); err != nil {
		return fmt.Errorf("failed to send websocket clear message: %w", err)
	}

	return r.closeLocked()
}

func (r *streamingRequest) Close() error {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()
	return r.closeLocked()
}

func (r *streamingRequest) closeLocked() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.sendWebsocketMessage(closeMsg); err != nil {
		if forcedCloseErr := r.ws.Close(); forcedCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, forcedCloseErr))
		}
	}
	return nil
}

func (r *streamingRequest) isDone() bool {
	r.textBufferMu.Lock()
	defer r.textBufferMu.Unlock()
	return r.closed || r.cancelled
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func speakMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

func (r *streamingRequest) sendWebsocketMessage(msg websocketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
