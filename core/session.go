package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cuevox/cue-core/core/confidence"
	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/events"
	"github.com/cuevox/cue-core/core/turns"
	"github.com/cuevox/cue-core/internal/utils"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnknownDirective is returned when a resolution names a directive the
	// session never offered.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrCaptureUnavailable is returned when voice capture was disabled after
	// a device failure.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
)

// Session drives one conversation: it tracks the turn state, renders the
// message log, gates pending input requests, and bridges the configured
// channel, transcription, synthesis, and audio device clients.
//
// The server owns the turn state. Local transitions are optimistic and any
// state carried by a server push overwrites them.
type Session struct {
	mu sync.RWMutex

	state turns.State
	gate  inputGate
	log   *messageLog
	// voiceDisabled is set after a capture device failure and keeps voice
	// input off for the rest of the session.
	voiceDisabled bool

	closeOnce sync.Once
	runtime   *sessionRuntime
	// cancelHookDone stops the context watcher when the session is closed
	// directly instead of through context cancellation.
	cancelHookDone chan struct{}

	// channel is the server transport facade used to handle optional client wiring.
	channel *serverChannel
	// speechToText is the STT facade used to handle optional client wiring.
	speechToText *speechToText
	// textToSpeech is the TTS facade driving response playback.
	textToSpeech *textToSpeech
	// audioInput is the input facade used to normalize capture behavior.
	audioInput *audioInput
	// audioOutput is the playback facade fed with synthesized response audio.
	audioOutput *audioOutput

	emitEvent   eventEmitter
	baseContext context.Context
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		state:       turns.StateIdle,
		gate:        newInputGate(),
		log:         newMessageLog(),
		runtime:     newSessionRuntime(),
		emitEvent:   noopEventEmitter,
		baseContext: context.Background(),
	}

	s.channel = newServerChannel(nil)
	s.speechToText = newSpeechToText(nil)
	s.textToSpeech = newTextToSpeech(nil)
	s.audioOutput = newAudioOutput(nil)
	s.audioInput = newAudioInput(nil, func(audio []byte) {
		s.routeEvent(events.NewUserAudioFrame(audio))

		if s.speechToText.isConfigured() {
			s.speechToText.SendAudio(audio)
			return
		}

		s.channel.SendAudio(audio)
	})

	s.channel.SetEventEmitter(s.routeEvent)
	s.speechToText.SetEventEmitter(s.routeEvent)
	s.audioInput.SetEventEmitter(s.routeEvent)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.runtime.stop()

		if err := s.audioInput.Close(); err != nil {
			recordedErr := fmt.Errorf("failed to close audio input: %w", err)
			span := trace.SpanFromContext(s.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := s.textToSpeech.Close(s.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close text-to-speech client: %w", err)
			span := trace.SpanFromContext(s.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := s.speechToText.Close(s.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close speech-to-text client: %w", err)
			span := trace.SpanFromContext(s.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := s.channel.Close(s.baseContext); err != nil {
			recordedErr := fmt.Errorf("failed to close server channel: %w", err)
			span := trace.SpanFromContext(s.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		s.mu.Lock()
		cancelHookDone := s.cancelHookDone
		s.cancelHookDone = nil
		s.mu.Unlock()
		if cancelHookDone != nil {
			close(cancelHookDone)
		}

		s.runtime.awaitDone()
	})
}

// Run connects the configured clients and starts applying session events.
//
// ctx is the base context for the event loop and all client calls; cancelling
// it closes the session.
//
// Contract: call Run at most once per session instance. Repeated or
// concurrent calls are unsupported and may race while callbacks are being
// reconfigured.
// TODO: Enforce this contract with a hard runtime guard (single-start gate).
func (s *Session) Run(ctx context.Context, opts ...RunOption) {
	if !s.runtime.canIngest() {
		log.Println("Warning: session already closed, skipping Run")
		return
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}

	s.mu.Lock()
	s.emitEvent = newCallbackEventEmitter(runOptions)
	s.baseContext = ctx
	s.mu.Unlock()

	if started := s.runtime.startLoop(ctx, s.processEvent); started {
		s.mu.Lock()
		s.cancelHookDone = withContextCancelHook(ctx, s.Close)
		s.mu.Unlock()
	}

	if err := s.channel.start(ctx); err != nil {
		recordedErr := fmt.Errorf("failed to connect to conversation server: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}

	if err := s.speechToText.start(ctx, utils.Ptr(s.audioInput.EncodingInfo())); err != nil {
		recordedErr := fmt.Errorf("failed to initialize speech-to-text: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
	}

	s.audioInput.Start(ctx)
}

// State returns the current turn state.
func (s *Session) State() turns.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Messages returns a point-in-time copy of the message log.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.snapshot()
}

// PendingInput returns the directive currently holding the input gate, or nil
// when input is not gated.
func (s *Session) PendingInput() directives.Directive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate.pendingDirective()
}

// CaptureAvailable reports whether voice capture can be requested: an input
// client is configured and no device failure has disabled voice.
func (s *Session) CaptureAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.voiceDisabled && s.audioInput.IsConfigured()
}

func (s *Session) IsCapturing() bool       { return s.audioInput.IsCapturing() }
func (s *Session) IsAlwaysCapturing() bool { return s.audioInput.IsAlwaysCapturing() }

// EnableAlwaysCapture keeps the microphone open across turns, leaving
// end-of-speech detection to the transcription side.
func (s *Session) EnableAlwaysCapture(ctx context.Context) error {
	return s.audioInput.EnableAlwaysCapture(ctx)
}

func (s *Session) DisableAlwaysCapture(ctx context.Context) error {
	return s.audioInput.DisableAlwaysCapture(ctx)
}

// PushAudio feeds externally captured audio into the transcription path,
// bypassing the configured input device.
func (s *Session) PushAudio(audio []byte) error {
	if s.speechToText.isConfigured() {
		return s.speechToText.SendAudio(audio)
	}

	return s.channel.SendAudio(audio)
}

// SubmitText sends a free-text message. Blank input is dropped, and while an
// input request is pending submission is a no-op.
func (s *Session) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.gate.isHeld() {
		s.mu.Unlock()
		log.Println("Ignoring text submission while input request is pending")
		return nil
	}

	emit := s.emitEvent
	emissions := []events.Event{}
	if message, appended := s.log.append(turns.RoleUser, text, nil); appended {
		emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
	}
	if s.state == turns.StateIdle {
		s.state = turns.StateThinking
		emissions = append(emissions, events.NewTurnStateChanged(turns.StateThinking))
	}
	s.mu.Unlock()

	for _, event := range emissions {
		emit(event)
	}

	if err := s.channel.SendText(text); err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}

	return nil
}

// StartCapture begins a voice turn. Outside the idle state, or while an input
// request is pending, it is a no-op. Without a usable input device it returns
// ErrCaptureUnavailable.
func (s *Session) StartCapture() error {
	s.mu.Lock()
	if s.state != turns.StateIdle || s.gate.isHeld() {
		s.mu.Unlock()
		return nil
	}
	if s.voiceDisabled || !s.audioInput.IsConfigured() {
		s.mu.Unlock()
		return ErrCaptureUnavailable
	}

	emit := s.emitEvent
	s.state = turns.StateRecording
	s.mu.Unlock()

	emit(events.NewTurnStateChanged(turns.StateRecording))

	if err := s.audioInput.RequestCapture(s.baseContext); err != nil {
		s.mu.Lock()
		rolledBack := s.state == turns.StateRecording
		if rolledBack {
			s.state = turns.StateIdle
		}
		s.mu.Unlock()
		if rolledBack {
			emit(events.NewTurnStateChanged(turns.StateIdle))
		}

		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	return nil
}

// StopCapture ends the voice turn and hands the utterance over for
// transcription. Outside the recording state it is a no-op.
func (s *Session) StopCapture() error {
	s.mu.Lock()
	if s.state != turns.StateRecording {
		s.mu.Unlock()
		return nil
	}

	emit := s.emitEvent
	s.state = turns.StateTranscribing
	s.mu.Unlock()

	emit(events.NewTurnStateChanged(turns.StateTranscribing))

	if err := s.audioInput.ReleaseCapture(s.baseContext); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}

	return nil
}

// Interrupt cancels in-flight speech. Outside the speaking state it is a
// no-op, so at most one interrupt goes out per spoken response.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	if s.state != turns.StateSpeaking {
		s.mu.Unlock()
		return nil
	}

	emit := s.emitEvent
	s.state = turns.StateIdle
	s.mu.Unlock()

	emit(events.NewTurnStateChanged(turns.StateIdle))

	var errs error
	if err := s.textToSpeech.Cancel(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to cancel speech generation: %w", err))
	}
	s.audioOutput.Clear()

	if err := s.channel.SendInterrupt(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to send interrupt: %w", err))
	}

	return errs
}

// ResolveYesNo resolves a yes/no prompt.
func (s *Session) ResolveYesNo(directiveID string, accepted bool) error {
	return s.resolvePending(directiveID, func(directive directives.Directive) (directives.Response, error) {
		yesNo, ok := directive.(directives.YesNo)
		if !ok {
			return directives.Response{}, fmt.Errorf("directive %s is not a yes/no prompt", directiveID)
		}

		return directives.EncodeYesNo(yesNo, accepted), nil
	})
}

// ResolveSlider resolves a slider request. Values outside the slider's bounds
// are clamped.
func (s *Session) ResolveSlider(directiveID string, value int) error {
	return s.resolvePending(directiveID, func(directive directives.Directive) (directives.Response, error) {
		slider, ok := directive.(directives.Slider)
		if !ok {
			return directives.Response{}, fmt.Errorf("directive %s is not a slider request", directiveID)
		}

		if value < slider.Min {
			value = slider.Min
		}
		if value > slider.Max {
			value = slider.Max
		}

		return directives.EncodeSlider(slider, value), nil
	})
}

// ResolveText resolves a text request with the submitted value verbatim.
func (s *Session) ResolveText(directiveID string, value string) error {
	return s.resolvePending(directiveID, func(directive directives.Directive) (directives.Response, error) {
		text, ok := directive.(directives.Text)
		if !ok {
			return directives.Response{}, fmt.Errorf("directive %s is not a text request", directiveID)
		}

		return directives.EncodeText(text, value), nil
	})
}

// ResolveChoice resolves a choice request by option index.
func (s *Session) ResolveChoice(directiveID string, optionIndex int) error {
	return s.resolvePending(directiveID, func(directive directives.Directive) (directives.Response, error) {
		choice, ok := directive.(directives.Choice)
		if !ok {
			return directives.Response{}, fmt.Errorf("directive %s is not a choice request", directiveID)
		}
		if optionIndex < 0 || optionIndex >= len(choice.Options) {
			return directives.Response{}, fmt.Errorf("choice option index %d out of range", optionIndex)
		}

		return directives.EncodeChoice(choice, choice.Options[optionIndex]), nil
	})
}

// ResolveApproval resolves an approval request. vector is optional and only
// carried by approval generations that collect confidence.
func (s *Session) ResolveApproval(directiveID string, approved bool, vector *confidence.Vector) error {
	return s.resolvePending(directiveID, func(directive directives.Directive) (directives.Response, error) {
		approval, ok := directive.(directives.Approval)
		if !ok {
			return directives.Response{}, fmt.Errorf("directive %s is not an approval request", directiveID)
		}

		return directives.EncodeApproval(approval, approved, vector), nil
	})
}

// resolvePending runs the shared resolution path: look up the directive,
// encode the outcome, release the gate, echo into the log, and send the
// response out. Re-resolving an already resolved directive is a no-op and
// sends nothing.
func (s *Session) resolvePending(directiveID string, encode func(directive directives.Directive) (directives.Response, error)) error {
	s.mu.Lock()
	directive, ok := s.gate.lookup(directiveID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDirective, directiveID)
	}

	response, err := encode(directive)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if !s.gate.resolve(directiveID) {
		s.mu.Unlock()
		return nil
	}

	emit := s.emitEvent
	emissions := []events.Event{events.NewInputGateReleased(directiveID)}
	if response.Echo != "" {
		if message, appended := s.log.append(turns.RoleUser, response.Echo, nil); appended {
			emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
		}
	}
	if s.state == turns.StateIdle {
		s.state = turns.StateThinking
		emissions = append(emissions, events.NewTurnStateChanged(turns.StateThinking))
	}
	s.mu.Unlock()

	for _, event := range emissions {
		emit(event)
	}

	return s.sendResponse(response)
}

// sendResponse forwards an encoded resolution: the structured payload first
// when the directive kind carries one, then the text form.
func (s *Session) sendResponse(response directives.Response) error {
	if response.Payload != nil {
		if err := s.channel.SendInputResponse(*response.Payload); err != nil {
			return fmt.Errorf("failed to send input resolution: %w", err)
		}
	}

	if response.Text != "" {
		if err := s.channel.SendText(response.Text); err != nil {
			return fmt.Errorf("failed to send resolution text: %w", err)
		}
	}

	return nil
}

// routeEvent is the emit target handed to every facade. Events that mutate
// session state detour through the runtime queue so channel reads and device
// callbacks are applied in arrival order; everything else goes straight to
// the registered callbacks.
func (s *Session) routeEvent(event events.Event) {
	switch event.(type) {
	case events.ServerStateChanged, events.ServerTranscription, events.ServerResponse, events.ServerError,
		events.UserTranscriptFinal, events.CaptureFailed:
		if s.runtime.ingest(event) {
			return
		}
	}

	s.mu.RLock()
	emit := s.emitEvent
	s.mu.RUnlock()
	emit(event)
}

func (s *Session) processEvent(ctx context.Context, event events.Event) error {
	switch typedEvent := event.(type) {
	case events.ServerStateChanged:
		return s.applyServerState(ctx, typedEvent)
	case events.ServerTranscription:
		return s.applyServerTranscription(ctx, typedEvent)
	case events.ServerResponse:
		return s.applyServerResponse(ctx, typedEvent)
	case events.ServerError:
		return s.applyServerError(ctx, typedEvent)
	case events.UserTranscriptFinal:
		return s.applyUserTranscript(ctx, typedEvent)
	case events.CaptureFailed:
		return s.applyCaptureFailed(ctx, typedEvent)
	default:
		return fmt.Errorf("skipped processing event of unknown type: %T", event)
	}
}

// applyServerState reconciles a server-pushed turn state. The push always
// wins over local optimistic transitions; unknown states are logged and
// dropped without disturbing the current state.
func (s *Session) applyServerState(ctx context.Context, event events.ServerStateChanged) error {
	state, ok := turns.ParseState(event.State)
	if !ok {
		logger.WarnContext(ctx, "skipped unknown turn state", "state", event.State)
		return nil
	}

	s.mu.Lock()
	emit := s.emitEvent
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		emit(events.NewTurnStateChanged(state))
	}

	return nil
}

func (s *Session) applyServerTranscription(_ context.Context, event events.ServerTranscription) error {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	emit := s.emitEvent
	emissions := []events.Event{}
	if message, appended := s.log.append(turns.RoleUser, text, nil); appended {
		emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
	}
	s.mu.Unlock()

	for _, emission := range emissions {
		emit(emission)
	}

	return nil
}

// applyServerResponse renders an assistant message: the text is scanned for
// embedded directives, gating directives acquire the input gate in order of
// appearance, and the plain-text remainder is synthesized when playback is
// configured. A response suppressed by the dedup guard offers nothing.
func (s *Session) applyServerResponse(_ context.Context, event events.ServerResponse) error {
	if event.Text == "" {
		return nil
	}

	segments := directives.Scan(event.Text)

	s.mu.Lock()
	emit := s.emitEvent
	emissions := []events.Event{}
	message, appended := s.log.append(turns.RoleAssistant, event.Text, segments)
	if appended {
		emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
		for _, segment := range segments {
			ref, ok := segment.(directives.DirectiveRef)
			if !ok {
				continue
			}

			s.gate.offer(ref.Directive)
			emissions = append(emissions, events.NewInputGateAcquired(ref.Directive))
		}
	}
	s.mu.Unlock()

	for _, emission := range emissions {
		emit(emission)
	}

	if appended && s.audioOutput.isConfigured() {
		if speech := plainTextOf(segments); speech != "" {
			// Synthesis outlives this handler, so the generator is bound to
			// the session context rather than the per-event one.
			if err := s.textToSpeech.Speak(s.baseContext, speech, s.audioOutput.EncodingInfo(), s.audioOutput.SendAudio); err != nil {
				return fmt.Errorf("failed to speak response: %w", err)
			}
		}
	}

	return nil
}

// applyServerError renders the error as a system message and soft-resets the
// turn state to idle. A held input gate stays held.
func (s *Session) applyServerError(_ context.Context, event events.ServerError) error {
	s.mu.Lock()
	emit := s.emitEvent
	emissions := []events.Event{}
	if message, appended := s.log.append(turns.RoleSystem, "Error: "+event.Message, nil); appended {
		emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
	}
	if s.state != turns.StateIdle {
		s.state = turns.StateIdle
		emissions = append(emissions, events.NewTurnStateChanged(turns.StateIdle))
	}
	s.mu.Unlock()

	for _, emission := range emissions {
		emit(emission)
	}

	return nil
}

// applyUserTranscript handles a final transcript from the local
// speech-to-text path: it is rendered as the user's message and forwarded to
// the server as text, since the server never heard the audio.
func (s *Session) applyUserTranscript(_ context.Context, event events.UserTranscriptFinal) error {
	transcript := strings.TrimSpace(event.Transcript)
	if transcript == "" {
		return nil
	}

	s.mu.Lock()
	emit := s.emitEvent
	emissions := []events.Event{}
	message, appended := s.log.append(turns.RoleUser, transcript, nil)
	if appended {
		emissions = append(emissions, events.NewMessageAppended(message.ID, message.Role, message.Text, message.Segments))
	}
	if appended && (s.state == turns.StateIdle || s.state == turns.StateTranscribing) {
		s.state = turns.StateThinking
		emissions = append(emissions, events.NewTurnStateChanged(turns.StateThinking))
	}
	s.mu.Unlock()

	emit(event)
	for _, emission := range emissions {
		emit(emission)
	}

	if appended {
		if err := s.channel.SendText(transcript); err != nil {
			return fmt.Errorf("failed to send transcript: %w", err)
		}
	}

	return nil
}

// applyCaptureFailed disables voice input for the rest of the session and
// rolls a stranded recording state back to idle.
func (s *Session) applyCaptureFailed(_ context.Context, event events.CaptureFailed) error {
	s.mu.Lock()
	emit := s.emitEvent
	s.voiceDisabled = true
	emissions := []events.Event{}
	if s.state == turns.StateRecording {
		s.state = turns.StateIdle
		emissions = append(emissions, events.NewTurnStateChanged(turns.StateIdle))
	}
	s.mu.Unlock()

	emit(event)
	for _, emission := range emissions {
		emit(emission)
	}

	return nil
}
