package conversation

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/cuevox/cue-core/core/audio"
	events "github.com/cuevox/cue-core/core/events"
)

// audioInput normalizes capture behavior across input clients. The device
// handle is session scoped: the stream is opened once and individual capture
// windows are gated by shouldCapture, unless the client exposes fine capture
// controls.
//
// Capture defaults to push-to-talk: no frames flow until RequestCapture.
type audioInput struct {
	// base stores the configured input client used for streaming audio.
	base audioInputBase
	// fineCaptureControl is set when the input client supports explicit capture controls.
	fineCaptureControl AudioInputFine

	// connected reports whether a concrete input client is currently configured.
	connected atomic.Bool
	// isCapturing reports whether the input client is currently capturing audio.
	isCapturing atomic.Bool

	// alwaysCapture keeps capture running continuously when enabled.
	alwaysCapture atomic.Bool
	// shouldCapture reports whether the input client should be capturing audio.
	shouldCapture atomic.Bool

	// failed is set after a device acquisition failure; capture requests are
	// rejected for the rest of the session.
	failed atomic.Bool

	// onInputAudio is called when input audio is received
	onInputAudio func(audio []byte)

	emitEvent eventEmitter
}

func newAudioInput(client audioInputBase, onInputAudio func(audio []byte)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func(audio []byte) {}
	}

	audioInput := audioInput{
		onInputAudio: onInputAudio,
		emitEvent:    noopEventEmitter,
	}
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = client
	a.fineCaptureControl = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if client == nil {
		return
	}

	a.connected.Store(true)
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) SetEventEmitter(emitEvent eventEmitter) {
	if a != nil {
		if emitEvent != nil {
			a.emitEvent = emitEvent
		} else {
			a.emitEvent = noopEventEmitter
		}
	}
}

func (a *audioInput) IsConfigured() bool            { return a != nil && a.connected.Load() }
func (a *audioInput) SupportsCaptureControls() bool { return a != nil && a.fineCaptureControl != nil }
func (a *audioInput) IsAlwaysCapturing() bool       { return a != nil && a.alwaysCapture.Load() }
func (a *audioInput) IsCapturing() bool             { return a != nil && a.isCapturing.Load() }
func (a *audioInput) ShouldCapture() bool           { return a != nil && a.shouldCapture.Load() }
func (a *audioInput) HasFailed() bool               { return a != nil && a.failed.Load() }

func (a *audioInput) EnableAlwaysCapture(ctx context.Context) error {
	if a == nil {
		return nil
	}

	a.alwaysCapture.Store(true)
	return a.Capture(ctx)
}

func (a *audioInput) DisableAlwaysCapture(context.Context) error {
	if a == nil {
		return nil
	}

	a.alwaysCapture.Store(false)
	return a.StopCapture()
}

func (a *audioInput) RequestCapture(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if a.failed.Load() {
		return errors.New("audio capture unavailable after device failure")
	}

	a.shouldCapture.Store(true)
	return a.Capture(ctx)
}

func (a *audioInput) ReleaseCapture(context.Context) error {
	if a == nil {
		return nil
	}

	a.shouldCapture.Store(false)
	return a.StopCapture()
}

func (a *audioInput) Start(ctx context.Context) {
	if a.IsConfigured() && !a.SupportsCaptureControls() {
		// Streaming clients hold the device for the whole session; frames
		// outside a capture window are dropped in onAudio.
		a.openStream(ctx)
	}
}

func (a *audioInput) Capture(ctx context.Context) error {
	if a == nil {
		return nil
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if a.SupportsCaptureControls() {
		if a.IsAlwaysCapturing() || a.ShouldCapture() {
			go func() {
				if err := a.fineCaptureControl.StartCapture(ctx, a.onAudio); err != nil {
					a.isCapturing.Store(false)
					a.recordFailure(err)
				}
			}()
			return nil
		}

		a.isCapturing.Store(false)
		return nil
	}

	a.isCapturing.Store(false)
	return nil
}

func (a *audioInput) openStream(ctx context.Context) {
	if a == nil || a.base == nil {
		return
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		if err := a.base.Stream(ctx, a.onAudio); err != nil {
			a.isCapturing.Store(false)
			a.recordFailure(err)
		}
	}()
}

func (a *audioInput) Close() error {
	var errs error
	if a.base != nil && a.IsConfigured() {
		if a.fineCaptureControl != nil {
			if err := a.fineCaptureControl.StopCapture(); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		a.base.Close()
	}
	a.isCapturing.Store(false)

	return errs
}

func (a *audioInput) StopCapture() error {
	if a.SupportsCaptureControls() {
		if a.IsAlwaysCapturing() || a.ShouldCapture() {
			return nil
		}

		if err := a.fineCaptureControl.StopCapture(); err != nil {
			return err
		}
		a.isCapturing.Store(false)
		return nil
	}

	return nil
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}

func (a *audioInput) recordFailure(err error) {
	a.failed.Store(true)
	log.Printf("Failed to start audio input: %v", err)
	a.emitEvent(events.NewCaptureFailed(err.Error()))
}

func (a *audioInput) onAudio(audio []byte) {
	if !a.IsAlwaysCapturing() && !a.ShouldCapture() {
		return
	}

	a.onInputAudio(audio)
}
