// Package replay implements a one-way conversation channel that plays a
// recorded server session back through the regular channel callbacks,
// keeping the recorded pacing. It lets a session run against canned traffic
// with no server available.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/remote"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	messageTypeStateChange   = "state_change"
	messageTypeTranscription = "transcription"
	messageTypeResponse      = "response"
	messageTypeError         = "error"
)

// recordedEvent is one line of a recording: an offset from playback start
// plus the wire message it reproduces.
type recordedEvent struct {
	At      time.Duration
	Type    string
	Payload json.RawMessage
}

type Channel struct {
	source string
	speed  float64

	events  []recordedEvent
	options remote.ChannelOptions

	closeOnce      sync.Once
	closed         chan struct{}
	disconnectOnce sync.Once
}

type Option func(*Channel)

// WithSpeed scales playback: 2 plays a recording twice as fast.
func WithSpeed(multiplier float64) Option {
	return func(c *Channel) {
		c.speed = multiplier
	}
}

// NewChannel builds a replay channel for a recording. Source is a local file
// path or an http(s) URL; it is loaded at Connect.
func NewChannel(source string, opts ...Option) (*Channel, error) {
	channel := &Channel{
		source: source,
		speed:  1,
		closed: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(channel)
	}

	if channel.speed <= 0 {
		return nil, fmt.Errorf("invalid playback speed %v", channel.speed)
	}

	return channel, nil
}

func (c *Channel) Connect(ctx context.Context, opts ...remote.ChannelOption) error {
	options := remote.ChannelOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	c.options = options

	events, err := loadRecording(ctx, c.source)
	if err != nil {
		return fmt.Errorf("failed to load recording: %w", err)
	}
	c.events = events

	if c.options.ConnectedCallback != nil {
		c.options.ConnectedCallback()
	}

	go c.play(ctx)

	return nil
}

// SendText is accepted and discarded: a recording does not react to input.
func (c *Channel) SendText(string) error { return nil }

func (c *Channel) SendInterrupt() error { return nil }

func (c *Channel) SendInputResponse(directives.ResponsePayload) error { return nil }

func (c *Channel) SendAudio([]byte) error { return nil }

func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Channel) play(ctx context.Context) {
	start := time.Now()

	for _, event := range c.events {
		at := time.Duration(float64(event.At) / c.speed)
		if delay := at - time.Since(start); delay > 0 {
			select {
			case <-ctx.Done():
				c.dispatchDisconnect()
				return
			case <-c.closed:
				c.dispatchDisconnect()
				return
			case <-time.After(delay):
			}
		}

		select {
		case <-c.closed:
			c.dispatchDisconnect()
			return
		default:
		}

		c.dispatch(event)
	}

	c.dispatchDisconnect()
}

func (c *Channel) dispatch(event recordedEvent) {
	switch event.Type {
	case messageTypeStateChange:
		var payload struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal recorded state change: %v", err)
			return
		}
		if c.options.StateChangedCallback != nil {
			c.options.StateChangedCallback(payload.State)
		}

	case messageTypeTranscription:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal recorded transcription: %v", err)
			return
		}
		if c.options.TranscriptionCallback != nil {
			c.options.TranscriptionCallback(payload.Text)
		}

	case messageTypeResponse:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal recorded response: %v", err)
			return
		}
		if c.options.ResponseCallback != nil {
			c.options.ResponseCallback(payload.Text)
		}

	case messageTypeError:
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("Failed to unmarshal recorded error: %v", err)
			return
		}
		if c.options.ErrorCallback != nil {
			c.options.ErrorCallback(payload.Message)
		}

	default:
		log.Printf("Skipped recorded message of unknown type: %q", event.Type)
	}
}

func (c *Channel) dispatchDisconnect() {
	c.disconnectOnce.Do(func() {
		if c.options.DisconnectedCallback != nil {
			c.options.DisconnectedCallback("")
		}
	})
}

func loadRecording(ctx context.Context, source string) ([]recordedEvent, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchRecording(ctx, source)
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	defer file.Close()

	return parseRecording(file)
}

func fetchRecording(ctx context.Context, source string) ([]recordedEvent, error) {
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build recording request: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recording: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch recording: unexpected status %s", response.Status)
	}

	return parseRecording(response.Body)
}

// parseRecording reads one JSON object per line: {"at_ms": …, "type": …,
// "payload": …}. Blank lines and lines starting with # are skipped.
func parseRecording(reader io.Reader) ([]recordedEvent, error) {
	events := []recordedEvent{}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var parsedLine struct {
			AtMs    int64           `json:"at_ms"`
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal([]byte(line), &parsedLine); err != nil {
			return nil, fmt.Errorf("failed to parse recording line %d: %w", lineNumber, err)
		}
		if parsedLine.Type == "" {
			return nil, fmt.Errorf("recording line %d has no message type", lineNumber)
		}

		events = append(events, recordedEvent{
			At:      time.Duration(parsedLine.AtMs) * time.Millisecond,
			Type:    parsedLine.Type,
			Payload: parsedLine.Payload,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	return events, nil
}
