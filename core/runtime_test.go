package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuevox/cue-core/core/events"
)

func TestRuntimeAppliesEventsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime := newSessionRuntime()
	defer runtime.stop()

	var mu sync.Mutex
	var applied []string
	apply := func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, string(event.Kind()))
		return nil
	}

	if started := runtime.startLoop(ctx, apply); !started {
		t.Fatalf("expected the loop started")
	}

	runtime.ingest(events.NewServerStateChanged("thinking"))
	runtime.ingest(events.NewServerResponse("first"))
	runtime.ingest(events.NewServerResponse("second"))

	waitForCondition(t, 2*time.Second, "all events applied", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		string(events.KindServerStateChanged),
		string(events.KindServerResponse),
		string(events.KindServerResponse),
	}
	for i, kind := range want {
		if applied[i] != kind {
			t.Fatalf("expected event %d to be %q, got %q", i, kind, applied[i])
		}
	}
}

func TestRuntimeQueuesEventsBeforeTheLoopStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime := newSessionRuntime()
	defer runtime.stop()

	if !runtime.ingest(events.NewServerResponse("queued early")) {
		t.Fatalf("expected ingestion before start to queue")
	}
	if got := runtime.queuedEventCount(); got != 1 {
		t.Fatalf("expected 1 queued event, got %d", got)
	}

	processed := make(chan events.Event, 1)
	runtime.startLoop(ctx, func(_ context.Context, event events.Event) error {
		select {
		case processed <- event:
		default:
		}
		return nil
	})

	select {
	case event := <-processed:
		response, ok := event.(events.ServerResponse)
		if !ok || response.Text != "queued early" {
			t.Fatalf("expected the queued event applied, got %#v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the queued event applied after start")
	}
}

func TestRuntimeRejectsIngestionAfterStop(t *testing.T) {
	runtime := newSessionRuntime()
	runtime.stop()

	if runtime.canIngest() {
		t.Fatalf("expected a stopped runtime to refuse events")
	}
	if runtime.ingest(events.NewServerResponse("too late")) {
		t.Fatalf("expected ingestion after stop rejected")
	}

	// awaitDone returns immediately when the loop never started.
	done := make(chan struct{})
	go func() {
		runtime.awaitDone()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected awaitDone to return without a started loop")
	}
}

func TestRuntimeSurvivesPanickingHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime := newSessionRuntime()
	defer runtime.stop()

	processed := make(chan string, 2)
	runtime.startLoop(ctx, func(_ context.Context, event events.Event) error {
		response := event.(events.ServerResponse)
		if response.Text == "explosive" {
			panic("handler blew up")
		}
		select {
		case processed <- response.Text:
		default:
		}
		return nil
	})

	runtime.ingest(events.NewServerResponse("explosive"))
	runtime.ingest(events.NewServerResponse("calm"))

	select {
	case text := <-processed:
		if text != "calm" {
			t.Fatalf("expected the follow-up event applied, got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the loop to survive the panic")
	}
}

func TestRuntimeStopEndsTheLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime := newSessionRuntime()
	runtime.startLoop(ctx, func(context.Context, events.Event) error { return nil })

	runtime.stop()

	done := make(chan struct{})
	go func() {
		runtime.awaitDone()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the loop to end after stop")
	}

	if runtime.startLoop(ctx, func(context.Context, events.Event) error { return nil }) {
		t.Fatalf("expected a stopped runtime to refuse restarting")
	}
}
