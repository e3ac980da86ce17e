package continuation

import (
	"context"
	"fmt"
	"time"

	"github.com/execkit/execkit/model/task"
)

// Op starts a completion-handle-based operation. It must arrange for the
// handle to be resumed when the operation finishes; it may return before
// that happens.
type Op[T any] func(ctx context.Context, h *Handle[T])

// WithTimeoutRetry races op against a per-attempt timeout, retrying up to
// attempts times with a fixed delay between attempts. The operation and the
// timeout branch share one handle per attempt, so only one of them can ever
// win. Non-timeout failures propagate immediately.
func WithTimeoutRetry[T any](ctx context.Context, attempts int, timeout, delay time.Duration, op Op[T]) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := runAttempt(ctx, attempt, timeout, op)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if task.KindOf(err) != task.KindTimeout || attempt == attempts {
			return zero, err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, task.NewCancelledError(ctx.Err().Error())
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, attempt int, timeout time.Duration, op Op[T]) (T, error) {
	h := New[T](fmt.Sprintf("timeout-retry attempt %v", attempt))
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go op(attemptCtx, h)
	if timeout > 0 {
		go func() {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			select {
			case <-timer.C:
				h.ResumeError(task.NewTimeoutError(fmt.Sprintf("attempt %v exceeded %v", attempt, timeout)))
			case <-attemptCtx.Done():
			}
		}()
	}
	return h.Await(attemptCtx)
}
