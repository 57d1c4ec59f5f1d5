package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuevox/cue-core/core/directives"
)

func withContextCancelHook(ctx context.Context, onContextDone func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			onContextDone()
		case <-done:
		}
	}()
	return done
}

type workerRun func(context.Context) error

func panicSafeNamedWorker(name string, run func(context.Context) error) workerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}

		return nil
	}
}

// plainTextOf joins the prose runs of a scanned response, skipping directive
// and parse error segments so prompts and payloads are never spoken aloud.
func plainTextOf(segments []directives.Segment) string {
	var parts []string
	for _, segment := range segments {
		if plain, ok := segment.(directives.PlainText); ok {
			if text := strings.TrimSpace(plain.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, " ")
}
