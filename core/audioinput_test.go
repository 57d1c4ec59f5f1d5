package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuevox/cue-core/core/audio"
	"github.com/cuevox/cue-core/core/turns"
)

// fakeStreamInput is a streaming input client without capture controls: the
// stream is held open for the whole session and frames are pushed through
// emit.
type fakeStreamInput struct {
	mu      sync.Mutex
	onAudio func(audio []byte)
	streams int
}

func (f *fakeStreamInput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (f *fakeStreamInput) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	f.mu.Lock()
	f.onAudio = onAudio
	f.streams++
	f.mu.Unlock()

	<-ctx.Done()
	return nil
}

func (f *fakeStreamInput) Close() {}

func (f *fakeStreamInput) streamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams
}

func (f *fakeStreamInput) emit(frame []byte) {
	f.mu.Lock()
	onAudio := f.onAudio
	f.mu.Unlock()
	if onAudio != nil {
		onAudio(frame)
	}
}

// failingFineInput exposes capture controls but cannot acquire the device.
type failingFineInput struct{}

func (failingFineInput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (failingFineInput) Stream(ctx context.Context, _ func(audio []byte)) error {
	<-ctx.Done()
	return nil
}

func (failingFineInput) Close() {}

func (failingFineInput) StartCapture(context.Context, func(audio []byte)) error {
	return errors.New("device busy")
}

func (failingFineInput) StopCapture() error { return nil }

func TestCaptureWindowGatesAudioFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	input := &fakeStreamInput{}
	session := NewSession(WithServerChannel(channel), WithAudioInput(input))
	defer session.Close()

	frames := make(chan []byte, 4)
	session.Run(ctx,
		WithInputAudioCallback(func(frame []byte) {
			select {
			case frames <- frame:
			default:
			}
		}),
	)

	if !session.CaptureAvailable() {
		t.Fatalf("expected capture available with an input device")
	}
	waitForCondition(t, 2*time.Second, "the input stream to open", func() bool {
		return input.streamCount() == 1
	})

	// Frames outside a capture window are dropped.
	input.emit([]byte{1, 2, 3})
	if got := channel.sentAudioCount(); got != 0 {
		t.Fatalf("expected no audio forwarded before capture starts, got %d", got)
	}

	if err := session.StartCapture(); err != nil {
		t.Fatalf("expected capture start to succeed, got %v", err)
	}
	if got := session.State(); got != turns.StateRecording {
		t.Fatalf("expected state %q, got %q", turns.StateRecording, got)
	}

	input.emit([]byte{4, 5, 6})
	if got := channel.sentAudioCount(); got != 1 {
		t.Fatalf("expected the captured frame forwarded, got %d", got)
	}
	select {
	case frame := <-frames:
		if len(frame) != 3 || frame[0] != 4 {
			t.Fatalf("expected the captured frame surfaced, got %v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input audio callback")
	}

	if err := session.StopCapture(); err != nil {
		t.Fatalf("expected capture stop to succeed, got %v", err)
	}
	if got := session.State(); got != turns.StateTranscribing {
		t.Fatalf("expected state %q, got %q", turns.StateTranscribing, got)
	}

	input.emit([]byte{7, 8, 9})
	if got := channel.sentAudioCount(); got != 1 {
		t.Fatalf("expected no audio forwarded after capture stops, got %d", got)
	}
}

func TestStartCaptureOutsideIdleIsANoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	input := &fakeStreamInput{}
	session := NewSession(WithServerChannel(channel), WithAudioInput(input))
	defer session.Close()
	session.Run(ctx)

	channel.pushState("thinking")
	waitForCondition(t, 2*time.Second, "state to become thinking", func() bool {
		return session.State() == turns.StateThinking
	})

	if err := session.StartCapture(); err != nil {
		t.Fatalf("expected capture start outside idle to no-op, got %v", err)
	}
	if got := session.State(); got != turns.StateThinking {
		t.Fatalf("expected state to stay %q, got %q", turns.StateThinking, got)
	}

	// StopCapture outside recording is equally inert.
	if err := session.StopCapture(); err != nil {
		t.Fatalf("expected capture stop outside recording to no-op, got %v", err)
	}
	if got := session.State(); got != turns.StateThinking {
		t.Fatalf("expected state to stay %q, got %q", turns.StateThinking, got)
	}
}

func TestAlwaysCaptureBypassesCaptureWindows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	input := &fakeStreamInput{}
	session := NewSession(WithServerChannel(channel), WithAudioInput(input))
	defer session.Close()
	session.Run(ctx)

	waitForCondition(t, 2*time.Second, "the input stream to open", func() bool {
		return input.streamCount() == 1
	})

	if err := session.EnableAlwaysCapture(ctx); err != nil {
		t.Fatalf("expected always-capture to enable, got %v", err)
	}
	if !session.IsAlwaysCapturing() {
		t.Fatalf("expected always-capture reported")
	}

	// Frames flow without a capture window, and the turn state is untouched.
	input.emit([]byte{1})
	if got := channel.sentAudioCount(); got != 1 {
		t.Fatalf("expected the frame forwarded, got %d", got)
	}
	if got := session.State(); got != turns.StateIdle {
		t.Fatalf("expected state to stay %q, got %q", turns.StateIdle, got)
	}

	if err := session.DisableAlwaysCapture(ctx); err != nil {
		t.Fatalf("expected always-capture to disable, got %v", err)
	}
	input.emit([]byte{2})
	if got := channel.sentAudioCount(); got != 1 {
		t.Fatalf("expected no frame forwarded after disabling, got %d", got)
	}
}

func TestCaptureFailureDisablesVoiceForTheSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel), WithAudioInput(failingFineInput{}))
	defer session.Close()

	failures := make(chan string, 1)
	session.Run(ctx,
		WithCaptureFailedCallback(func(reason string) {
			select {
			case failures <- reason:
			default:
			}
		}),
	)

	if err := session.StartCapture(); err != nil {
		t.Fatalf("expected capture start to be accepted, got %v", err)
	}

	select {
	case reason := <-failures:
		if reason != "device busy" {
			t.Fatalf("expected failure reason %q, got %q", "device busy", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a capture failed callback")
	}

	waitForCondition(t, 2*time.Second, "the recording state to roll back", func() bool {
		return session.State() == turns.StateIdle
	})

	if session.CaptureAvailable() {
		t.Fatalf("expected capture unavailable after a device failure")
	}
	if err := session.StartCapture(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
}

func TestPushAudioForwardsToChannelWithoutLocalTranscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()
	session.Run(ctx)

	if err := session.PushAudio([]byte{1, 2}); err != nil {
		t.Fatalf("expected pushed audio to be accepted, got %v", err)
	}
	if got := channel.sentAudioCount(); got != 1 {
		t.Fatalf("expected the pushed audio forwarded, got %d", got)
	}
}
