// Package continuation guards one-shot completion handles. A handle delivers
// exactly one outcome to its awaiting caller; any later resume attempt is
// rejected and reported instead of double-invoking the completion, which in
// most runtimes is undefined behaviour.
package continuation

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/execkit/execkit/internal/clock"
	"github.com/execkit/execkit/model/task"
)

// Strict makes a duplicate resume panic instead of logging. Enable it in
// development builds to catch double-resume bugs at their call site; leave it
// off in production where a logged warning is the correct behaviour.
var Strict = false

// Diagnostics is a snapshot of a handle's provenance, used to debug
// "never resumed" (caller hangs) and "resumed twice" classes of bugs.
type Diagnostics struct {
	Name        string
	CreatedAt   time.Time
	CreatedSite string
	ResumedAt   time.Time
	ResumedSite string
	Resumed     bool
	Duplicates  int
}

type outcome[T any] struct {
	value T
	err   error
}

// Handle is a one-shot completion. It must be resumed exactly once; the
// first resume wins and every subsequent attempt is a reported no-op.
type Handle[T any] struct {
	name string

	mu          sync.Mutex
	resumed     bool
	duplicates  int
	createdAt   time.Time
	createdSite string
	resumedAt   time.Time
	resumedSite string
	done        chan outcome[T]
}

// New creates a pending handle. The name appears in diagnostics only.
func New[T any](name string) *Handle[T] {
	return &Handle[T]{
		name:        name,
		createdAt:   clock.Now(),
		createdSite: callSite(2),
		done:        make(chan outcome[T], 1),
	}
}

// Resume delivers a value. It returns true when this call won the handle,
// false when the handle was already resumed (the original outcome stands).
func (h *Handle[T]) Resume(value T) bool {
	return h.resume(outcome[T]{value: value}, callSite(2))
}

// ResumeError delivers a failure, with the same first-call-wins semantics as
// Resume.
func (h *Handle[T]) ResumeError(err error) bool {
	return h.resume(outcome[T]{err: err}, callSite(2))
}

func (h *Handle[T]) resume(out outcome[T], site string) bool {
	h.mu.Lock()
	if h.resumed {
		h.duplicates++
		first := h.resumedSite
		h.mu.Unlock()
		message := fmt.Sprintf("continuation %q resumed more than once: first at %v, duplicate at %v", h.name, first, site)
		if Strict {
			panic(message)
		}
		log.Print(message)
		return false
	}
	h.resumed = true
	h.resumedAt = clock.Now()
	h.resumedSite = site
	// Capture the channel under the lock: Reset replaces it, and a resume
	// racing a reset must deliver into the channel of its own cycle.
	done := h.done
	h.mu.Unlock()
	done <- out
	return true
}

// Await blocks until the handle is resumed or ctx is done. A context-aborted
// wait leaves the handle pending: a later resume is still the first one.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()
	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, task.NewCancelledError(fmt.Sprintf("continuation %q: %v", h.name, ctx.Err()))
	}
}

// IsResumed reports whether the handle has delivered its outcome.
func (h *Handle[T]) IsResumed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resumed
}

// Reset returns the handle to the pending state for pooled reuse. Resetting a
// never-resumed handle reports a leak: its awaiting caller, if any, will hang
// forever.
func (h *Handle[T]) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.resumed {
		log.Printf("continuation %q reset while pending (created at %v): awaiting caller leaks", h.name, h.createdSite)
	}
	h.resumed = false
	h.duplicates = 0
	h.resumedAt = time.Time{}
	h.resumedSite = ""
	h.done = make(chan outcome[T], 1)
}

// Diagnostics returns a provenance snapshot.
func (h *Handle[T]) Diagnostics() Diagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Diagnostics{
		Name:        h.name,
		CreatedAt:   h.createdAt,
		CreatedSite: h.createdSite,
		ResumedAt:   h.resumedAt,
		ResumedSite: h.resumedSite,
		Resumed:     h.resumed,
		Duplicates:  h.duplicates,
	}
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%v:%v", file, line)
}
