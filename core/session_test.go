package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuevox/cue-core/core/directives"
	"github.com/cuevox/cue-core/core/remote"
	"github.com/cuevox/cue-core/core/turns"
)

// recordingChannel stands in for a live server connection: it records every
// outbound send and exposes the callbacks registered at Connect so tests can
// push server events through them.
type recordingChannel struct {
	mu      sync.Mutex
	options remote.ChannelOptions

	texts      []string
	payloads   []directives.ResponsePayload
	audio      [][]byte
	interrupts int
}

func (c *recordingChannel) Connect(_ context.Context, opts ...remote.ChannelOption) error {
	options := remote.ChannelOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	c.options = options
	c.mu.Unlock()

	if options.ConnectedCallback != nil {
		options.ConnectedCallback()
	}
	return nil
}

func (c *recordingChannel) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return nil
}

func (c *recordingChannel) SendInputResponse(payload directives.ResponsePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *recordingChannel) SendInterrupt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interrupts++
	return nil
}

func (c *recordingChannel) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = append(c.audio, audio)
	return nil
}

func (c *recordingChannel) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.texts...)
}

func (c *recordingChannel) sentPayloads() []directives.ResponsePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]directives.ResponsePayload{}, c.payloads...)
}

func (c *recordingChannel) sentAudioCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.audio)
}

func (c *recordingChannel) interruptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupts
}

func (c *recordingChannel) pushState(state string) {
	c.mu.Lock()
	callback := c.options.StateChangedCallback
	c.mu.Unlock()
	if callback != nil {
		callback(state)
	}
}

func (c *recordingChannel) pushTranscription(text string) {
	c.mu.Lock()
	callback := c.options.TranscriptionCallback
	c.mu.Unlock()
	if callback != nil {
		callback(text)
	}
}

func (c *recordingChannel) pushResponse(text string) {
	c.mu.Lock()
	callback := c.options.ResponseCallback
	c.mu.Unlock()
	if callback != nil {
		callback(text)
	}
}

func (c *recordingChannel) pushError(message string) {
	c.mu.Lock()
	callback := c.options.ErrorCallback
	c.mu.Unlock()
	if callback != nil {
		callback(message)
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func TestSubmitTextSendsAndMovesToThinking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	if err := session.SubmitText("  hello there  "); err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}

	select {
	case message := <-messages:
		if message.Role != turns.RoleUser {
			t.Fatalf("expected user message, got %q", message.Role)
		}
		if message.Text != "hello there" {
			t.Fatalf("expected trimmed text %q, got %q", "hello there", message.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a message callback")
	}

	if got := session.State(); got != turns.StateThinking {
		t.Fatalf("expected state %q after submission, got %q", turns.StateThinking, got)
	}
	if got := channel.sentTexts(); len(got) != 1 || got[0] != "hello there" {
		t.Fatalf("expected one sent text %q, got %v", "hello there", got)
	}
}

func TestSubmitTextDropsBlankInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()
	session.Run(ctx)

	if err := session.SubmitText("   \n\t "); err != nil {
		t.Fatalf("expected blank submission to be dropped silently, got %v", err)
	}

	if got := channel.sentTexts(); len(got) != 0 {
		t.Fatalf("expected nothing sent, got %v", got)
	}
	if got := session.State(); got != turns.StateIdle {
		t.Fatalf("expected state to stay %q, got %q", turns.StateIdle, got)
	}
	if got := len(session.Messages()); got != 0 {
		t.Fatalf("expected empty message log, got %d messages", got)
	}
}

func TestServerStatePushOverridesLocalState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	states := make(chan turns.State, 8)
	session.Run(ctx,
		WithStateChangedCallback(func(state turns.State) {
			select {
			case states <- state:
			default:
			}
		}),
	)

	channel.pushState("speaking")

	select {
	case state := <-states:
		if state != turns.StateSpeaking {
			t.Fatalf("expected state %q, got %q", turns.StateSpeaking, state)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a state change callback")
	}

	if got := session.State(); got != turns.StateSpeaking {
		t.Fatalf("expected state %q, got %q", turns.StateSpeaking, got)
	}
}

func TestServerStatePushIgnoresUnknownStates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	channel.pushState("thinking")
	waitForCondition(t, 2*time.Second, "state to become thinking", func() bool {
		return session.State() == turns.StateThinking
	})

	// The trailing response proves the unknown state was already evaluated.
	channel.pushState("daydreaming")
	channel.pushResponse("Still with you.")
	select {
	case <-messages:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the trailing response rendered")
	}

	if got := session.State(); got != turns.StateThinking {
		t.Fatalf("expected unknown state dropped, got %q", got)
	}

	channel.pushState("speaking")
	waitForCondition(t, 2*time.Second, "state to become speaking", func() bool {
		return session.State() == turns.StateSpeaking
	})
}

func TestServerTranscriptionAppendsUserMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	channel.pushTranscription("what I said")

	select {
	case message := <-messages:
		if message.Role != turns.RoleUser {
			t.Fatalf("expected user message, got %q", message.Role)
		}
		if message.Text != "what I said" {
			t.Fatalf("expected text %q, got %q", "what I said", message.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a message callback")
	}

	if got := channel.sentTexts(); len(got) != 0 {
		t.Fatalf("expected server transcription not to be echoed back, got %v", got)
	}
}

func TestServerResponseOffersDirectiveAndGatesInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 1)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
	)

	channel.pushResponse("Ready to proceed. [YES_NO: Apply the change?]")

	var directive directives.Directive
	select {
	case directive = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input request callback")
	}

	yesNo, ok := directive.(directives.YesNo)
	if !ok {
		t.Fatalf("expected a yes/no directive, got %T", directive)
	}
	if yesNo.Question != "Apply the change?" {
		t.Fatalf("expected question %q, got %q", "Apply the change?", yesNo.Question)
	}

	if pending := session.PendingInput(); pending == nil || pending.ID() != directive.ID() {
		t.Fatalf("expected directive %s to hold the input gate", directive.ID())
	}

	// Submission and capture are disabled while the request is pending.
	if err := session.SubmitText("let me sneak this in"); err != nil {
		t.Fatalf("expected gated submission to no-op, got %v", err)
	}
	if err := session.StartCapture(); err != nil {
		t.Fatalf("expected gated capture start to no-op, got %v", err)
	}
	if got := channel.sentTexts(); len(got) != 0 {
		t.Fatalf("expected nothing sent while gated, got %v", got)
	}
	if got := session.State(); got != turns.StateIdle {
		t.Fatalf("expected state to stay %q while gated, got %q", turns.StateIdle, got)
	}
}

func TestResolveYesNoReleasesGateAndSendsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 1)
	resolved := make(chan string, 2)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
		WithInputResolvedCallback(func(directiveID string) {
			select {
			case resolved <- directiveID:
			default:
			}
		}),
	)

	channel.pushResponse("[YES_NO: Continue?]")

	var directive directives.Directive
	select {
	case directive = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input request callback")
	}

	if err := session.ResolveYesNo(directive.ID(), true); err != nil {
		t.Fatalf("expected resolution to succeed, got %v", err)
	}

	select {
	case directiveID := <-resolved:
		if directiveID != directive.ID() {
			t.Fatalf("expected resolution of %s, got %s", directive.ID(), directiveID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input resolved callback")
	}

	if pending := session.PendingInput(); pending != nil {
		t.Fatalf("expected gate released, still pending %s", pending.ID())
	}
	if got := channel.sentTexts(); len(got) != 1 || got[0] != "Yes" {
		t.Fatalf("expected one sent text %q, got %v", "Yes", got)
	}
	if got := channel.sentPayloads(); len(got) != 0 {
		t.Fatalf("expected no structured payload for yes/no, got %v", got)
	}
	if got := session.State(); got != turns.StateThinking {
		t.Fatalf("expected state %q after resolution, got %q", turns.StateThinking, got)
	}

	foundEcho := false
	for _, message := range session.Messages() {
		if message.Role == turns.RoleUser && message.Text == "Selected: Yes" {
			foundEcho = true
		}
	}
	if !foundEcho {
		t.Fatalf("expected the decision echoed into the log")
	}

	// Resolving again changes nothing and sends nothing.
	if err := session.ResolveYesNo(directive.ID(), false); err != nil {
		t.Fatalf("expected repeated resolution to no-op, got %v", err)
	}
	if got := channel.sentTexts(); len(got) != 1 {
		t.Fatalf("expected no second send, got %v", got)
	}
}

func TestResolveSliderClampsAndSendsPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 1)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
	)

	channel.pushResponse(`[INPUT: {"type": "slider", "question": "How urgent is this?", "semantic_label": "urgency"}]`)

	var directive directives.Directive
	select {
	case directive = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input request callback")
	}

	if err := session.ResolveSlider(directive.ID(), 250); err != nil {
		t.Fatalf("expected resolution to succeed, got %v", err)
	}

	payloads := channel.sentPayloads()
	if len(payloads) != 1 {
		t.Fatalf("expected one structured payload, got %d", len(payloads))
	}
	if payloads[0].Type != directives.KindSlider {
		t.Fatalf("expected payload type %q, got %q", directives.KindSlider, payloads[0].Type)
	}
	if value, ok := payloads[0].Value.(int); !ok || value != 100 {
		t.Fatalf("expected value clamped to 100, got %v", payloads[0].Value)
	}
	if got := channel.sentTexts(); len(got) != 1 || got[0] != "urgency: 100" {
		t.Fatalf("expected resolution text %q, got %v", "urgency: 100", got)
	}
}

func TestResolveRejectsUnknownAndMismatchedDirectives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 1)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
	)

	if err := session.ResolveYesNo("no-such-directive", true); !errors.Is(err, ErrUnknownDirective) {
		t.Fatalf("expected ErrUnknownDirective, got %v", err)
	}

	channel.pushResponse("[YES_NO: Continue?]")

	var directive directives.Directive
	select {
	case directive = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input request callback")
	}

	err := session.ResolveSlider(directive.ID(), 50)
	if err == nil {
		t.Fatalf("expected kind mismatch to fail")
	}
	if errors.Is(err, ErrUnknownDirective) {
		t.Fatalf("expected a kind mismatch error, got %v", err)
	}

	// The failed attempt leaves the request pending.
	if pending := session.PendingInput(); pending == nil {
		t.Fatalf("expected gate still held after mismatched resolution")
	}
	if got := channel.sentTexts(); len(got) != 0 {
		t.Fatalf("expected nothing sent, got %v", got)
	}
}

func TestInterruptOnlyWhileSpeaking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()
	session.Run(ctx)

	if err := session.Interrupt(); err != nil {
		t.Fatalf("expected idle interrupt to no-op, got %v", err)
	}
	if got := channel.interruptCount(); got != 0 {
		t.Fatalf("expected no interrupt sent while idle, got %d", got)
	}

	channel.pushState("speaking")
	waitForCondition(t, 2*time.Second, "state to become speaking", func() bool {
		return session.State() == turns.StateSpeaking
	})

	if err := session.Interrupt(); err != nil {
		t.Fatalf("expected interrupt to succeed, got %v", err)
	}
	if got := session.State(); got != turns.StateIdle {
		t.Fatalf("expected state %q after interrupt, got %q", turns.StateIdle, got)
	}
	if got := channel.interruptCount(); got != 1 {
		t.Fatalf("expected one interrupt sent, got %d", got)
	}

	// The optimistic transition already left speaking, so a second press
	// cannot double-send.
	if err := session.Interrupt(); err != nil {
		t.Fatalf("expected repeated interrupt to no-op, got %v", err)
	}
	if got := channel.interruptCount(); got != 1 {
		t.Fatalf("expected still one interrupt sent, got %d", got)
	}
}

func TestServerErrorRendersSystemMessageAndKeepsGate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 1)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
	)

	channel.pushResponse("[YES_NO: Continue?]")
	select {
	case <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an input request callback")
	}

	channel.pushState("thinking")
	waitForCondition(t, 2*time.Second, "state to become thinking", func() bool {
		return session.State() == turns.StateThinking
	})

	channel.pushError("model unavailable")
	waitForCondition(t, 2*time.Second, "state to reset to idle", func() bool {
		return session.State() == turns.StateIdle
	})

	foundError := false
	for _, message := range session.Messages() {
		if message.Role == turns.RoleSystem && message.Text == "Error: model unavailable" {
			foundError = true
		}
	}
	if !foundError {
		t.Fatalf("expected the error rendered as a system message")
	}

	// Errors do not resolve pending input.
	if pending := session.PendingInput(); pending == nil {
		t.Fatalf("expected gate still held after server error")
	}
}

func TestDuplicateResponseWithinWindowIsSuppressed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	channel.pushResponse("All done.")
	channel.pushResponse("All done.")
	// Events apply in order, so once the trailing response renders the
	// duplicate has already been through the guard.
	channel.pushResponse("Anything else?")

	var rendered []string
	for len(rendered) < 2 {
		select {
		case message := <-messages:
			rendered = append(rendered, message.Text)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 rendered messages, got %v", rendered)
		}
	}

	if rendered[0] != "All done." || rendered[1] != "Anything else?" {
		t.Fatalf("expected the duplicate suppressed, got %v", rendered)
	}
	if got := len(session.Messages()); got != 2 {
		t.Fatalf("expected 2 logged messages, got %d", got)
	}
}

func TestSubmitTextSuppressesRemoteEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	if err := session.SubmitText("show me the logs"); err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}
	select {
	case <-messages:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the submission rendered")
	}

	// The server transcribes the same message right back; the trailing
	// transcription proves the echo was already evaluated.
	channel.pushTranscription("show me the logs")
	channel.pushTranscription("and the server metrics")

	select {
	case message := <-messages:
		if message.Text != "and the server metrics" {
			t.Fatalf("expected the remote echo suppressed, got %q", message.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the trailing transcription rendered")
	}

	if got := len(session.Messages()); got != 2 {
		t.Fatalf("expected 2 logged messages, got %d", got)
	}
}

func TestStartCaptureWithoutInputDeviceFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()
	session.Run(ctx)

	if session.CaptureAvailable() {
		t.Fatalf("expected capture unavailable without an input device")
	}
	if err := session.StartCapture(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if got := session.State(); got != turns.StateIdle {
		t.Fatalf("expected state to stay %q, got %q", turns.StateIdle, got)
	}
}

func TestResponseSegmentsCarryDirectiveAndPlainText(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
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

	channel.pushResponse("Take a look. [YES_NO: Deploy now?] I can wait.")

	var message Message
	select {
	case message = <-messages:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a message callback")
	}

	if message.Role != turns.RoleAssistant {
		t.Fatalf("expected assistant message, got %q", message.Role)
	}
	if len(message.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(message.Segments))
	}
	if _, ok := message.Segments[1].(directives.DirectiveRef); !ok {
		t.Fatalf("expected middle segment to be a directive, got %T", message.Segments[1])
	}
	if !strings.Contains(message.Text, "Deploy now?") {
		t.Fatalf("expected raw text preserved, got %q", message.Text)
	}
}

func TestSecondDirectiveReplacesPendingWithoutQueueing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	session := NewSession(WithServerChannel(channel))
	defer session.Close()

	requested := make(chan directives.Directive, 2)
	session.Run(ctx,
		WithInputRequestedCallback(func(directive directives.Directive) {
			select {
			case requested <- directive:
			default:
			}
		}),
	)

	channel.pushResponse("[YES_NO: First question?]")
	var first directives.Directive
	select {
	case first = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the first input request")
	}

	channel.pushResponse("[YES_NO: Second question?]")
	var second directives.Directive
	select {
	case second = <-requested:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the second input request")
	}

	if pending := session.PendingInput(); pending == nil || pending.ID() != second.ID() {
		t.Fatalf("expected the newest directive to hold the gate")
	}

	// Resolving the older directive still releases the gate; the newer one
	// stays resolvable afterwards.
	if err := session.ResolveYesNo(first.ID(), false); err != nil {
		t.Fatalf("expected resolution of the first directive, got %v", err)
	}
	if pending := session.PendingInput(); pending != nil {
		t.Fatalf("expected gate released, still pending %s", pending.ID())
	}

	if err := session.ResolveYesNo(second.ID(), true); err != nil {
		t.Fatalf("expected resolution of the second directive, got %v", err)
	}

	texts := channel.sentTexts()
	if len(texts) != 2 || texts[0] != "No" || texts[1] != "Yes" {
		t.Fatalf("expected both decisions sent in order, got %v", texts)
	}
}

func TestCloseBeforeRunMarksClosed(t *testing.T) {
	session := NewSession(WithServerChannel(&recordingChannel{}))
	session.Close()

	if session.runtime.canIngest() {
		t.Fatalf("expected runtime closed")
	}

	// Run after Close is skipped instead of reviving the session.
	session.Run(context.Background())
	if session.runtime.canIngest() {
		t.Fatalf("expected runtime to stay closed after Run")
	}
}
