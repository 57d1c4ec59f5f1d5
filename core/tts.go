package conversation

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/cuevox/cue-core/core/texttospeech"
)

// textToSpeech wraps the configured synthesis client. Each spoken response
// gets a fresh speech generator; starting a new one cancels whatever is still
// generating so playback never overlaps.
type textToSpeech struct {
	// client stores the configured text-to-speech implementation.
	client TextToSpeech

	generatorMu sync.Mutex
	// generator is the in-flight speech generator, nil when idle.
	generator texttospeech.SpeechGenerator
}

func newTextToSpeech(client TextToSpeech) *textToSpeech {
	return &textToSpeech{client: client}
}

func (t *textToSpeech) set(client TextToSpeech) {
	if t != nil {
		t.client = client
	}
}

func (t *textToSpeech) isConfigured() bool {
	return t != nil && t.client != nil
}

// Speak synthesizes text into audio chunks delivered through onAudio. It
// returns once the full text is handed to the generator; synthesis itself is
// asynchronous.
func (t *textToSpeech) Speak(ctx context.Context, text string, encodingInfo audio.EncodingInfo, onAudio func(audio []byte)) error {
	if !t.isConfigured() || text == "" {
		return nil
	}
	if onAudio == nil {
		onAudio = func([]byte) {}
	}

	t.generatorMu.Lock()
	defer t.generatorMu.Unlock()

	t.cancelGeneratorLocked()

	// Captured by the ended callback so a finished generator never clears a
	// newer one that replaced it.
	var generator texttospeech.SpeechGenerator

	ttsOptions := []texttospeech.TextToSpeechOption{
		texttospeech.WithSpeechAudioCallback(onAudio),
		texttospeech.WithSpeechEndedCallback(func(texttospeech.SpeechEndedReport) { t.clearGenerator(generator) }),
		texttospeech.WithErrorCallback(func(err error) {
			log.Printf("Speech generation error: %v", err)
		}),
		texttospeech.WithEncodingInfo(encodingInfo),
	}

	generator, err := t.client.NewSpeechGenerator(ctx, ttsOptions...)
	if err != nil {
		return fmt.Errorf("failed to create speech generator: %w", err)
	}
	t.generator = generator

	if err := generator.SendText(text); err != nil {
		return fmt.Errorf("failed to send text to tts: %w", err)
	}
	if err := generator.EndOfText(); err != nil {
		return fmt.Errorf("failed to send end of text to tts: %w", err)
	}

	return nil
}

// Cancel stops the in-flight generator, if any.
func (t *textToSpeech) Cancel() error {
	if t == nil {
		return nil
	}

	t.generatorMu.Lock()
	defer t.generatorMu.Unlock()

	return t.cancelGeneratorLocked()
}

func (t *textToSpeech) cancelGeneratorLocked() error {
	if t.generator == nil {
		return nil
	}

	generator := t.generator
	t.generator = nil
	if err := generator.Cancel(); err != nil {
		return fmt.Errorf("failed to cancel tts: %w", err)
	}
	return nil
}

func (t *textToSpeech) clearGenerator(generator texttospeech.SpeechGenerator) {
	if t == nil {
		return
	}

	t.generatorMu.Lock()
	if t.generator == generator {
		t.generator = nil
	}
	t.generatorMu.Unlock()
}

func (t *textToSpeech) Close(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if err := t.Cancel(); err != nil {
		return err
	}

	if t.client == nil {
		return nil
	}

	switch c := t.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close text-to-speech client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close text-to-speech client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
