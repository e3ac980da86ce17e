package execkit

import (
	"context"

	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/service/batch"
	"github.com/execkit/execkit/service/executor"
	"github.com/execkit/execkit/service/resource"
	"github.com/execkit/execkit/service/state"
	"github.com/execkit/execkit/stats"
	"github.com/execkit/execkit/tracing"
)

// Service is the engine façade: the task executor, resource ledger and
// shared-state store wired together by an explicit composition root. Nothing
// here is ambient global state; construct one per process (or more, for
// isolated workloads) and pass it to whatever needs it.
type Service struct {
	config   *Config
	tracker  *stats.Stats
	ledger   *resource.Service
	executor *executor.Service
	store    *state.Store
	onStats  func(stats.Stats)
}

// New creates an engine service.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.store == nil {
		s.store = state.NewStore()
	}
	s.tracker = stats.NewTracker("execkit", s.onStats)
	s.ledger = resource.New(s.config.Resources)
	var err error
	s.executor, err = executor.New(
		executor.WithConfig(s.config.Executor),
		executor.WithLedger(s.ledger),
		executor.WithStats(s.tracker),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Execute runs one unit of work under resource and concurrency control and
// returns its typed result or typed error.
func (s *Service) Execute(ctx context.Context, t *task.Task, work task.Work) (interface{}, error) {
	return s.executor.Execute(ctx, t, work)
}

// RunAll fans the items out over the executor with the given wave size,
// returning every item's outcome keyed by id.
func (s *Service) RunAll(ctx context.Context, items []batch.Item, maxConcurrency int) map[string]batch.Result {
	return batch.RunAll(ctx, s.executor, items, maxConcurrency)
}

// Cancel requests cooperative cancellation of a running or queued task.
func (s *Service) Cancel(id string) bool {
	return s.executor.Cancel(id)
}

// CancelAll cancels every running task and fails all queued callers.
func (s *Service) CancelAll() {
	s.executor.CancelAll()
}

// State returns the shared-state store.
func (s *Service) State() *state.Store {
	return s.store
}

// Resources returns the resource ledger.
func (s *Service) Resources() *resource.Service {
	return s.ledger
}

// Executor returns the underlying task executor.
func (s *Service) Executor() *executor.Service {
	return s.executor
}

// Stats returns a snapshot of the engine counters.
func (s *Service) Stats() stats.Stats {
	return s.tracker.Snapshot()
}

// ActiveTasks returns the number of currently running tasks.
func (s *Service) ActiveTasks() int {
	return s.executor.Len()
}

// QueuedTasks returns the number of submissions parked in the wait queue.
func (s *Service) QueuedTasks() int {
	return s.executor.QueueLen()
}

// Shutdown gracefully terminates the engine: new submissions are rejected,
// running and queued work is cancelled, and the shared state is cleared.
func (s *Service) Shutdown(ctx context.Context) {
	_, span := tracing.StartSpan(ctx, "execkit.Shutdown", "INTERNAL")
	defer tracing.EndSpan(span, nil)
	s.executor.Shutdown()
	s.store.Clear()
}
