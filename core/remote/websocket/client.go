package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/remote"
	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 30 * time.Second
	controlWaitLimit = 5 * time.Second
)

// ChannelClient is a conversation server channel over a single websocket.
// Inbound envelopes are dispatched to the callbacks registered at Connect;
// outbound sends are serialized by a write mutex.
type ChannelClient struct {
	serverURL string

	conn   *websocket.Conn
	connMu sync.Mutex

	options remote.ChannelOptions

	closeOnce sync.Once
	closed    chan struct{}
}

// NewChannelClient builds a client for the given server URL. http and https
// schemes are coerced to their websocket equivalents.
func NewChannelClient(serverURL string) (*ChannelClient, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported server URL scheme %q", parsed.Scheme)
	}

	return &ChannelClient{
		serverURL: parsed.String(),
		closed:    make(chan struct{}),
	}, nil
}

func (c *ChannelClient) Connect(ctx context.Context, opts ...remote.ChannelOption) error {
	options := remote.ChannelOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	c.options = options

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, http.Header{})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to conversation server: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if c.options.ConnectedCallback != nil {
		c.options.ConnectedCallback()
	}

	go c.readAndProcessMessages(ctx, conn)
	go c.keepAlive(ctx, conn)

	return nil
}

func (c *ChannelClient) SendText(text string) error {
	return c.sendEnvelope(messageTypeTextMessage, textPayload{Text: text})
}

func (c *ChannelClient) SendInterrupt() error {
	return c.sendEnvelope(messageTypeInterrupt, nil)
}

func (c *ChannelClient) SendInputResponse(payload directives.ResponsePayload) error {
	return c.sendEnvelope(messageTypeInputResponse, payload)
}

func (c *ChannelClient) SendAudio(audio []byte) error {
	return c.sendEnvelope(messageTypeAudioData, audioPayload{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}

// Close sends a normal closure frame and lets the read loop reap the
// connection once the server echoes it. A failed close handshake tears the
// connection down directly.
func (c *ChannelClient) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		deadline := time.Now().Add(controlWaitLimit)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
			if aggressiveCloseErr := conn.Close(); aggressiveCloseErr != nil {
				closeErr = fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
			}
		}
	})

	return closeErr
}

func (c *ChannelClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *ChannelClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			reason := ""
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !c.isClosed() {
				log.Printf("Websocket read error: %v", err)
				reason = err.Error()
			}

			c.releaseConn(conn)
			conn.Close()

			if c.options.DisconnectedCallback != nil {
				c.options.DisconnectedCallback(reason)
			}
			return
		}

		if msgType == websocket.TextMessage {
			c.processMessage(ctx, msg)
		}
	}
}

func (c *ChannelClient) processMessage(_ context.Context, msg []byte) {
	var parsedMsg envelope
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		log.Printf("Failed to unmarshal server message: %v", err)
		return
	}

	switch parsedMsg.Type {
	case messageTypeStateChange:
		var payload statePayload
		if err := json.Unmarshal(parsedMsg.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal state change payload: %v", err)
			return
		}
		if c.options.StateChangedCallback != nil {
			c.options.StateChangedCallback(payload.State)
		}

	case messageTypeTranscription:
		var payload textPayload
		if err := json.Unmarshal(parsedMsg.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal transcription payload: %v", err)
			return
		}
		if c.options.TranscriptionCallback != nil {
			c.options.TranscriptionCallback(payload.Text)
		}

	case messageTypeResponse:
		var payload textPayload
		if err := json.Unmarshal(parsedMsg.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal response payload: %v", err)
			return
		}
		if c.options.ResponseCallback != nil {
			c.options.ResponseCallback(payload.Text)
		}

	case messageTypeError:
		var payload errorPayload
		if err := json.Unmarshal(parsedMsg.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal error payload: %v", err)
			return
		}
		if c.options.ErrorCallback != nil {
			c.options.ErrorCallback(payload.Message)
		}

	default:
		log.Printf("Skipped server message of unknown type: %q", parsedMsg.Type)
	}
}

func (c *ChannelClient) sendEnvelope(messageType string, payload any) error {
	message := envelope{Type: messageType}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
		}
		message.Payload = body
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := c.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write to conversation server: %w", err)
	}
	return nil
}

// keepAlive pings on an interval so idle connections survive intermediaries.
// Control frames may be written concurrently with other writes, so no write
// mutex is taken here.
func (c *ChannelClient) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-ticker.C:
			if !c.holdsConn(conn) {
				return
			}

			deadline := time.Now().Add(controlWaitLimit)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Printf("Failed to ping conversation server: %v", err)
				return
			}
		}
	}
}

func (c *ChannelClient) holdsConn(conn *websocket.Conn) bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn == conn
}

func (c *ChannelClient) releaseConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}
