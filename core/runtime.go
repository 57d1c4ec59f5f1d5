package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuevox/cue-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const sessionEventQueueCapacity = 10

type queuedEvent struct {
	event    events.Event
	queuedAt time.Time
}

// sessionRuntime serializes session mutations: channel reads and device
// callbacks ingest events, and a single loop goroutine applies them in order.
type sessionRuntime struct {
	queue   chan queuedEvent
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		queue:   make(chan queuedEvent, sessionEventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (runtime *sessionRuntime) canIngest() bool {
	if runtime == nil {
		return false
	}

	select {
	case <-runtime.closeCh:
		return false
	default:
		return true
	}
}

func (runtime *sessionRuntime) startLoop(baseCtx context.Context, applyEvent func(context.Context, events.Event) error) (started bool) {
	if runtime == nil || applyEvent == nil || !runtime.canIngest() {
		return false
	}

	runtime.startOnce.Do(func() {
		if !runtime.canIngest() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			for {
				select {
				case <-runtime.closeCh:
					return
				case queuedEvent := <-runtime.queue:
					if !runtime.canIngest() {
						return
					}
					runtime.processQueuedEvent(baseCtx, queuedEvent, applyEvent)
				}
			}
		}()
	})

	return started
}

func (runtime *sessionRuntime) stop() {
	if runtime == nil {
		return
	}

	runtime.endOnce.Do(func() { close(runtime.closeCh) })
}

func (runtime *sessionRuntime) awaitDone() {
	if runtime == nil {
		return
	}

	if runtime.started.Load() {
		<-runtime.done
	}
}

func (runtime *sessionRuntime) ingest(event events.Event) bool {
	if runtime == nil || !runtime.canIngest() {
		return false
	}

	queueItem := queuedEvent{event: event, queuedAt: time.Now()}
	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- queueItem:
		return true
	}
}

func (runtime *sessionRuntime) processQueuedEvent(
	baseContext context.Context,
	queuedEvent queuedEvent,
	applyEvent func(context.Context, events.Event) error,
) {
	if runtime == nil || applyEvent == nil {
		return
	}

	eventCtx, eventCancel := context.WithCancel(baseContext)
	defer eventCancel()

	go func() {
		select {
		case <-runtime.closeCh:
			eventCancel()
		case <-eventCtx.Done():
		}
	}()

	ctx, span := tracer.Start(eventCtx, "process session event")
	defer span.End()

	queuedTime := time.Since(queuedEvent.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("session_event.queued_time", queuedTime)))
	span.SetAttributes(
		attribute.Float64("session_event.queued_time", queuedTime),
		attribute.String("session_event.kind", string(queuedEvent.event.Kind())),
	)

	apply := panicSafeNamedWorker("session event", func(ctx context.Context) error {
		return applyEvent(ctx, queuedEvent.event)
	})
	if err := apply(ctx); err != nil {
		err := fmt.Errorf("failed to apply session event: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (runtime *sessionRuntime) queuedEventCount() int {
	if runtime == nil {
		return 0
	}

	return len(runtime.queue)
}
