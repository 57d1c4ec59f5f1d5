package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/cuevox/cue-core/core/texttospeech"
	"github.com/cuevox/cue-core/core/turns"
)

// fakeSpeechGenerator records the text handed to synthesis and exposes the
// callbacks registered at creation so tests can emit audio and end reports.
type fakeSpeechGenerator struct {
	mu        sync.Mutex
	options   texttospeech.TextToSpeechOptions
	texts     []string
	ended     bool
	cancelled bool
}

func (g *fakeSpeechGenerator) SendText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *fakeSpeechGenerator) Mark() error { return nil }

func (g *fakeSpeechGenerator) EndOfText() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ended = true
	return nil
}

func (g *fakeSpeechGenerator) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
	return nil
}

func (g *fakeSpeechGenerator) Close() error { return nil }

func (g *fakeSpeechGenerator) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.texts...)
}

func (g *fakeSpeechGenerator) isEnded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

func (g *fakeSpeechGenerator) wasCancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

func (g *fakeSpeechGenerator) emitAudio(chunk []byte) {
	g.mu.Lock()
	callback := g.options.SpeechAudioCallback
	g.mu.Unlock()
	if callback != nil {
		callback(chunk)
	}
}

func (g *fakeSpeechGenerator) finish() {
	g.mu.Lock()
	callback := g.options.SpeechEndedCallback
	g.mu.Unlock()
	if callback != nil {
		callback(texttospeech.SpeechEndedReport{})
	}
}

type fakeSpeechSynthesizer struct {
	mu         sync.Mutex
	generators []*fakeSpeechGenerator
}

func (f *fakeSpeechSynthesizer) NewSpeechGenerator(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	options := texttospeech.TextToSpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	generator := &fakeSpeechGenerator{options: options}
	f.mu.Lock()
	f.generators = append(f.generators, generator)
	f.mu.Unlock()
	return generator, nil
}

func (f *fakeSpeechSynthesizer) generatorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generators)
}

func (f *fakeSpeechSynthesizer) generator(i int) *fakeSpeechGenerator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generators[i]
}

// playbackOutput records synthesized audio and buffer clears.
type playbackOutput struct {
	mu     sync.Mutex
	chunks [][]byte
	clears int
}

func (p *playbackOutput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (p *playbackOutput) SendAudio(audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, audio)
	return nil
}

func (p *playbackOutput) ClearBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
}

func (p *playbackOutput) chunkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}

func (p *playbackOutput) clearCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clears
}

func TestResponseSpeaksPlainTextOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	synthesizer := &fakeSpeechSynthesizer{}
	playback := &playbackOutput{}
	session := NewSession(
		WithServerChannel(channel),
		WithTextToSpeechClient(synthesizer),
		WithAudioOutput(playback),
	)
	defer session.Close()
	session.Run(ctx)

	channel.pushResponse("Here we go. [YES_NO: Apply the change?]")

	waitForCondition(t, 2*time.Second, "a speech generator to start", func() bool {
		return synthesizer.generatorCount() == 1
	})

	generator := synthesizer.generator(0)
	if got := generator.sentTexts(); len(got) != 1 || got[0] != "Here we go." {
		t.Fatalf("expected only the prose synthesized, got %v", got)
	}
	if !generator.isEnded() {
		t.Fatalf("expected end of text signalled")
	}

	generator.emitAudio([]byte{1, 2, 3})
	if got := playback.chunkCount(); got != 1 {
		t.Fatalf("expected the synthesized chunk played, got %d", got)
	}
}

func TestDirectiveOnlyResponseStaysSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	synthesizer := &fakeSpeechSynthesizer{}
	playback := &playbackOutput{}
	session := NewSession(
		WithServerChannel(channel),
		WithTextToSpeechClient(synthesizer),
		WithAudioOutput(playback),
	)
	defer session.Close()

	messages := make(chan Message, 4)
	session.Run(ctx,
		WithMessageCallback(func(message Message) {
			select {
			case messages <- message:
			default:
			}
		}),
	)

	channel.pushResponse("[YES_NO: Silent question?]")
	select {
	case <-messages:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the response rendered")
	}

	if got := synthesizer.generatorCount(); got != 0 {
		t.Fatalf("expected no synthesis for a directive-only response, got %d generators", got)
	}
}

func TestInterruptCancelsSpeechAndClearsPlayback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	synthesizer := &fakeSpeechSynthesizer{}
	playback := &playbackOutput{}
	session := NewSession(
		WithServerChannel(channel),
		WithTextToSpeechClient(synthesizer),
		WithAudioOutput(playback),
	)
	defer session.Close()
	session.Run(ctx)

	channel.pushResponse("A very long story that keeps going.")
	waitForCondition(t, 2*time.Second, "a speech generator to start", func() bool {
		return synthesizer.generatorCount() == 1
	})

	channel.pushState("speaking")
	waitForCondition(t, 2*time.Second, "state to become speaking", func() bool {
		return session.State() == turns.StateSpeaking
	})

	if err := session.Interrupt(); err != nil {
		t.Fatalf("expected interrupt to succeed, got %v", err)
	}

	if !synthesizer.generator(0).wasCancelled() {
		t.Fatalf("expected the in-flight generator cancelled")
	}
	if got := playback.clearCount(); got != 1 {
		t.Fatalf("expected buffered playback cleared once, got %d", got)
	}
	if got := channel.interruptCount(); got != 1 {
		t.Fatalf("expected one interrupt sent, got %d", got)
	}
}

func TestNewResponseReplacesInFlightGenerator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	synthesizer := &fakeSpeechSynthesizer{}
	playback := &playbackOutput{}
	session := NewSession(
		WithServerChannel(channel),
		WithTextToSpeechClient(synthesizer),
		WithAudioOutput(playback),
	)
	defer session.Close()
	session.Run(ctx)

	channel.pushResponse("First response.")
	waitForCondition(t, 2*time.Second, "the first generator to start", func() bool {
		return synthesizer.generatorCount() == 1
	})

	channel.pushResponse("Second response.")
	waitForCondition(t, 2*time.Second, "the second generator to start", func() bool {
		return synthesizer.generatorCount() == 2
	})

	if !synthesizer.generator(0).wasCancelled() {
		t.Fatalf("expected the first generator cancelled by the second response")
	}
	if synthesizer.generator(1).wasCancelled() {
		t.Fatalf("expected the second generator still running")
	}
}

func TestFinishedGeneratorIsNotCancelledLater(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	synthesizer := &fakeSpeechSynthesizer{}
	playback := &playbackOutput{}
	session := NewSession(
		WithServerChannel(channel),
		WithTextToSpeechClient(synthesizer),
		WithAudioOutput(playback),
	)
	defer session.Close()
	session.Run(ctx)

	channel.pushResponse("Short and sweet.")
	waitForCondition(t, 2*time.Second, "a speech generator to start", func() bool {
		return synthesizer.generatorCount() == 1
	})

	generator := synthesizer.generator(0)
	generator.finish()

	channel.pushState("speaking")
	waitForCondition(t, 2*time.Second, "state to become speaking", func() bool {
		return session.State() == turns.StateSpeaking
	})

	// The ended report already released the generator, so the interrupt only
	// clears playback and notifies the server.
	if err := session.Interrupt(); err != nil {
		t.Fatalf("expected interrupt to succeed, got %v", err)
	}
	if generator.wasCancelled() {
		t.Fatalf("expected the finished generator left alone")
	}
	if got := channel.interruptCount(); got != 1 {
		t.Fatalf("expected one interrupt sent, got %d", got)
	}
}
