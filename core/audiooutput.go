package conversation

import (
	"log"
	"reflect"

	"github.com/cuevox/cue-core/core/audio"
)

// audioOutput wraps the configured playback client so session code can route
// synthesized audio without nil checks.
//
// NOTE: SendAudio does best-effort forwarding and only logs client errors
// because playback is a non-fatal side effect of a response.
type audioOutput struct {
	// client stores the configured playback client.
	client AudioOutput
}

func newAudioOutput(client AudioOutput) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.set(client)
	return &audioOutput
}

// set replaces the configured playback client. Nil and typed-nil clients are
// treated as unconfigured.
func (a *audioOutput) set(client AudioOutput) {
	if a == nil {
		return
	}

	if isNilAudioOutput(client) {
		a.client = nil
		return
	}
	a.client = client
}

func (a *audioOutput) isConfigured() bool {
	return a != nil && a.client != nil
}

// SendAudio forwards a chunk to the configured playback client. If no client
// is configured, the chunk is dropped.
func (a *audioOutput) SendAudio(audio []byte) {
	if !a.isConfigured() {
		return
	}

	if err := a.client.SendAudio(audio); err != nil {
		log.Printf("Failed to send audio to output: %v", err)
	}
}

// Clear flushes buffered playback on the configured client.
//
// If no client is configured, this is a no-op.
func (a *audioOutput) Clear() {
	if !a.isConfigured() {
		return
	}

	a.client.ClearBuffer()
}

// EncodingInfo returns the active playback encoding metadata.
//
// If no client is configured, the project default encoding is used.
func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if !a.isConfigured() {
		return audio.GetDefaultEncodingInfo()
	}

	return a.client.EncodingInfo()
}

// isNilAudioOutput detects nil and typed-nil interface values so set can
// avoid storing unusable interface wrappers as configured clients.
func isNilAudioOutput(client AudioOutput) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
