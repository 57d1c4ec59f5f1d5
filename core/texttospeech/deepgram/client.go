package deepgram

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// TextToSpeechClient synthesizes speech through Deepgram's streaming speak
// API. Every speech generator opens its own websocket, so the client itself
// only carries the voice to synthesize with.
type TextToSpeechClient struct {
	voice deepgramVoice
	mu    sync.Mutex
}

func NewTextToSpeechClient(ctx context.Context, voice deepgramVoice) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{voice: defaultVoice}

	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	client.voice = voice

	return client, nil
}

// SetVoice changes the voice used by generators created after the call.
// Generators already in flight keep the voice they were created with.
func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice = voice
}

func (c *TextToSpeechClient) currentVoice() deepgramVoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voice
}
