// Package stats keeps aggregated execution counters (submitted, running,
// completed, …) for one engine instance. The tracker lives in the execution
// context so every component receiving the context can atomically update the
// counters via the Delta helper without a global registry.
package stats

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental counter change. Fields are signed, so they can be
// either an increment or a decrement.
type Delta struct {
	Submitted int
	Running   int
	Queued    int
	Completed int
	Failed    int
	Cancelled int
	Retried   int
}

// Stats aggregates task counters for one executor instance. It is safe for
// concurrent use.
type Stats struct {
	// Informative only, filled when the tracker is created.
	Name      string
	StartedAt time.Time

	Submitted int
	Running   int
	Queued    int
	Completed int
	Failed    int
	Cancelled int
	Retried   int

	sync.Mutex
	onChange func(Stats)
}

// NewTracker creates a named tracker. onChange, when non-nil, is invoked
// after every update with a snapshot, outside the critical section, so it may
// perform slow work (encoding, I/O) without blocking the engine.
func NewTracker(name string, onChange func(Stats)) *Stats {
	return &Stats{Name: name, StartedAt: time.Now(), onChange: onChange}
}

// Update applies the delta. Safe to call from multiple goroutines.
func (s *Stats) Update(d Delta) {
	if s == nil {
		return
	}
	s.Lock()
	s.Submitted += d.Submitted
	s.Running += d.Running
	s.Queued += d.Queued
	s.Completed += d.Completed
	s.Failed += d.Failed
	s.Cancelled += d.Cancelled
	s.Retried += d.Retried

	snapshot := *s
	cb := s.onChange
	s.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (s *Stats) Snapshot() Stats {
	if s == nil {
		return Stats{}
	}
	s.Lock()
	defer s.Unlock()
	return *s
}

// OnChange registers the callback invoked after every update. Passing nil
// disables it; only one callback is active at a time.
func (s *Stats) OnChange(cb func(Stats)) {
	if s == nil {
		return
	}
	s.Lock()
	s.onChange = cb
	s.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context.
func WithTracker(ctx context.Context, s *Stats) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, s)
}

// FromContext extracts the tracker from ctx; the bool is false when the
// context carries none.
func FromContext(ctx context.Context) (*Stats, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(trackerKey).(*Stats)
	return s, ok
}

// UpdateCtx applies the delta to the tracker in ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if s, ok := FromContext(ctx); ok {
		s.Update(d)
	}
}
