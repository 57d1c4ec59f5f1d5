package conversation

import (
	"context"
	"fmt"

	"github.com/cuevox/cue-core/core/directives"
	events "github.com/cuevox/cue-core/core/events"
	"github.com/cuevox/cue-core/core/remote"
)

// serverChannel wraps the configured channel client. All methods are no-ops
// until a client is set, so a session can run fully offline.
type serverChannel struct {
	// client stores the configured channel implementation.
	client ServerChannel

	emitEvent eventEmitter
}

func newServerChannel(client ServerChannel) *serverChannel {
	return &serverChannel{
		client:    client,
		emitEvent: noopEventEmitter,
	}
}

func (c *serverChannel) set(client ServerChannel) {
	if c != nil {
		c.client = client
	}
}

func (c *serverChannel) start(ctx context.Context) error {
	if !c.isConfigured() {
		return nil
	}

	channelOptions := []remote.ChannelOption{
		remote.WithConnectedCallback(c.invokeConnected),
		remote.WithDisconnectedCallback(c.invokeDisconnected),
		remote.WithStateChangedCallback(c.invokeStateChanged),
		remote.WithTranscriptionCallback(c.invokeTranscription),
		remote.WithResponseCallback(c.invokeResponse),
		remote.WithErrorCallback(c.invokeError),
	}

	if err := c.client.Connect(ctx, channelOptions...); err != nil {
		return fmt.Errorf("failed to connect server channel: %w", err)
	}

	return nil
}

func (c *serverChannel) SendText(text string) error {
	if !c.isConfigured() {
		return nil
	}

	return c.client.SendText(text)
}

func (c *serverChannel) SendInputResponse(payload directives.ResponsePayload) error {
	if !c.isConfigured() {
		return nil
	}

	return c.client.SendInputResponse(payload)
}

func (c *serverChannel) SendInterrupt() error {
	if !c.isConfigured() {
		return nil
	}

	return c.client.SendInterrupt()
}

func (c *serverChannel) SendAudio(audio []byte) error {
	if !c.isConfigured() {
		return nil
	}

	return c.client.SendAudio(audio)
}

func (c *serverChannel) Close(ctx context.Context) error {
	if !c.isConfigured() {
		return nil
	}

	switch client := c.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := client.Close(ctx); err != nil {
			return fmt.Errorf("failed to close server channel: %w", err)
		}
	case interface{ Close(context.Context) }:
		client.Close(ctx)
	case interface{ Close() error }:
		if err := client.Close(); err != nil {
			return fmt.Errorf("failed to close server channel: %w", err)
		}
	case interface{ Close() }:
		client.Close()
	}

	return nil
}

func (c *serverChannel) SetEventEmitter(emitEvent eventEmitter) {
	if c != nil {
		if emitEvent != nil {
			c.emitEvent = emitEvent
		} else {
			c.emitEvent = noopEventEmitter
		}
	}
}

func (c *serverChannel) isConfigured() bool {
	return c != nil && c.client != nil
}

func (c *serverChannel) invokeConnected() {
	c.emitEvent(events.NewChannelConnected())
}

func (c *serverChannel) invokeDisconnected(reason string) {
	c.emitEvent(events.NewChannelDisconnected(reason))
}

func (c *serverChannel) invokeStateChanged(state string) {
	c.emitEvent(events.NewServerStateChanged(state))
}

func (c *serverChannel) invokeTranscription(text string) {
	c.emitEvent(events.NewServerTranscription(text))
}

func (c *serverChannel) invokeResponse(text string) {
	c.emitEvent(events.NewServerResponse(text))
}

func (c *serverChannel) invokeError(message string) {
	c.emitEvent(events.NewServerError(message))
}
