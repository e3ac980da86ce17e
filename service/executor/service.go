package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/policy"
	"github.com/execkit/execkit/service/resource"
	"github.com/execkit/execkit/stats"
	"github.com/execkit/execkit/tracing"
)

// Config represents executor service configuration.
type Config struct {
	// MaxConcurrentTasks bounds the number of simultaneously running tasks.
	MaxConcurrentTasks int `json:"maxConcurrentTasks" yaml:"maxConcurrentTasks"`

	// MaxQueuedTasks bounds the wait queue; submissions beyond it are
	// rejected rather than parked. Zero means unbounded.
	MaxQueuedTasks int `json:"maxQueuedTasks" yaml:"maxQueuedTasks"`
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks: 5,
		MaxQueuedTasks:     100,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c Config) Validate() error {
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("executor.maxConcurrentTasks must be > 0")
	}
	if c.MaxQueuedTasks < 0 {
		return fmt.Errorf("executor.maxQueuedTasks must not be negative")
	}
	return nil
}

// runningTask tracks one admitted task until its result is delivered.
type runningTask struct {
	task            *task.Task
	cancel          context.CancelFunc
	cancelRequested bool
}

// Service runs opaque units of work under admission control, bounded
// concurrency with priority ordering, retry with exponential backoff and
// per-task timeouts. Every operation on one instance is serialized against
// the others; the work itself runs outside the lock.
type Service struct {
	config  Config
	ledger  *resource.Service
	tracker *stats.Stats

	mu      sync.Mutex
	running map[string]*runningTask
	waiting *waitQueue
	seq     uint64
	closed  bool
}

// New creates an executor service.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:  DefaultConfig(),
		running: make(map[string]*runningTask),
	}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	s.waiting = newWaitQueue(s.config.MaxQueuedTasks)
	return s, nil
}

type outcome struct {
	value interface{}
	err   error
}

// Execute runs work under the task's scheduling parameters and returns its
// result or a typed error. When all slots are busy the caller suspends until
// the wait queue releases the task, in descending priority order, FIFO within
// a priority. The call returns only after the work has finished, failed, or
// been cancelled.
func (s *Service) Execute(ctx context.Context, t *task.Task, work task.Work) (value interface{}, err error) {
	if t == nil || work == nil {
		return nil, task.NewUnknownError("task and work are required")
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("executor.Execute %s", t.ID), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"task.id": t.ID, "task.priority": t.Priority.String()})

	if p := policy.FromContext(ctx); p != nil {
		if p.IsBlocked(t.ID) {
			return nil, task.NewCancelledError(fmt.Sprintf("task %q blocked by policy", t.ID))
		}
		t = p.Apply(t)
	}
	s.tracker.Update(stats.Delta{Submitted: 1})

	// Resource admission is a hard accept/reject decision, never a wait.
	if t.Requirement != nil && s.ledger != nil {
		if err = s.ledger.Reserve(t.Requirement); err != nil {
			s.tracker.Update(stats.Delta{Failed: 1})
			return nil, err
		}
		defer s.ledger.Release(t.Requirement)
	}

	runCtx, err := s.admit(ctx, t)
	if err != nil {
		if task.KindOf(err) == task.KindCancelled {
			s.tracker.Update(stats.Delta{Cancelled: 1})
		} else {
			s.tracker.Update(stats.Delta{Failed: 1})
		}
		return nil, err
	}
	s.tracker.Update(stats.Delta{Running: 1})

	value, err = s.runAttempts(runCtx, t, work)

	delta := stats.Delta{Running: -1}
	switch {
	case err == nil:
		delta.Completed = 1
	case task.KindOf(err) == task.KindCancelled:
		delta.Cancelled = 1
	default:
		delta.Failed = 1
	}
	s.tracker.Update(delta)
	s.finish(t.ID)
	return value, err
}

// admit either claims a free slot or parks the submission in the wait queue
// and suspends until a slot is granted. On success the returned context is
// the task's cancellable run context.
func (s *Service) admit(ctx context.Context, t *task.Task) (context.Context, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, task.NewCancelledError("executor is shut down")
	}
	if _, exists := s.running[t.ID]; exists {
		s.mu.Unlock()
		return nil, task.NewCustomError(fmt.Sprintf("task %q is already running", t.ID))
	}
	if s.waiting.contains(t.ID) {
		s.mu.Unlock()
		return nil, task.NewCustomError(fmt.Sprintf("task %q is already queued", t.ID))
	}
	if len(s.running) < s.config.MaxConcurrentTasks {
		runCtx := s.claimLocked(ctx, t)
		s.mu.Unlock()
		return runCtx, nil
	}

	s.seq++
	e := &entry{task: t, grant: make(chan error, 1), seq: s.seq}
	if !s.waiting.push(e) {
		s.mu.Unlock()
		return nil, task.NewResourceUnavailableError(fmt.Sprintf("wait queue is full (%v entries)", s.config.MaxQueuedTasks))
	}
	s.tracker.Update(stats.Delta{Queued: 1})
	s.mu.Unlock()

	select {
	case grantErr := <-e.grant:
		s.tracker.Update(stats.Delta{Queued: -1})
		if grantErr != nil {
			return nil, grantErr
		}
	case <-ctx.Done():
		s.tracker.Update(stats.Delta{Queued: -1})
		s.mu.Lock()
		removed := s.waiting.remove(t.ID)
		s.mu.Unlock()
		if removed == nil {
			// The slot was granted while we were abandoning; give it back.
			if grantErr := <-e.grant; grantErr == nil {
				s.finish(t.ID)
			}
		}
		return nil, task.NewCancelledError(ctx.Err().Error())
	}

	// The granter pre-registered the task; attach the caller's context.
	s.mu.Lock()
	r := s.running[t.ID]
	if r == nil || r.cancelRequested {
		s.mu.Unlock()
		s.finish(t.ID)
		return nil, task.NewCancelledError(fmt.Sprintf("task %q cancelled while queued", t.ID))
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	s.mu.Unlock()
	return runCtx, nil
}

// claimLocked registers t as running. Caller holds s.mu.
func (s *Service) claimLocked(ctx context.Context, t *task.Task) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	s.running[t.ID] = &runningTask{task: t, cancel: cancel}
	return runCtx
}

// finish removes the task from the running set and hands its slot to the
// highest-priority waiter, if any.
func (s *Service) finish(id string) {
	s.mu.Lock()
	if r, ok := s.running[id]; ok {
		if r.cancel != nil {
			r.cancel()
		}
		delete(s.running, id)
	}
	var next *entry
	if !s.closed && len(s.running) < s.config.MaxConcurrentTasks {
		if next = s.waiting.pop(); next != nil {
			s.running[next.task.ID] = &runningTask{task: next.task}
		}
	}
	s.mu.Unlock()
	if next != nil {
		next.grant <- nil
	}
}

// runAttempts applies the retry policy around individual attempts. A task
// without a policy runs exactly once.
func (s *Service) runAttempts(runCtx context.Context, t *task.Task, work task.Work) (interface{}, error) {
	retry := t.Retry
	if retry == nil {
		retry = task.SingleAttempt()
	}
	for attempt := 1; ; attempt++ {
		value, err := s.runOnce(runCtx, t, work)
		if err == nil {
			return value, nil
		}
		if task.KindOf(err) == task.KindCancelled || !retry.ShouldRetry(attempt, err) {
			return nil, err
		}
		s.tracker.Update(stats.Delta{Retried: 1})
		timer := time.NewTimer(retry.Delay(attempt))
		select {
		case <-timer.C:
		case <-runCtx.Done():
			timer.Stop()
			return nil, task.NewCancelledError(fmt.Sprintf("task %q cancelled during backoff", t.ID))
		}
	}
}

// runOnce races a single attempt of the work against the task deadline;
// whichever finishes first wins and the loser observes a cancelled context.
func (s *Service) runOnce(runCtx context.Context, t *task.Task, work task.Work) (interface{}, error) {
	attemptCtx := runCtx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(runCtx, t.Timeout)
		defer cancel()
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: task.NewUnknownError(fmt.Sprintf("task %q panicked: %v", t.ID, r))}
			}
		}()
		value, err := work(attemptCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, s.translate(t, out.err)
	case <-attemptCtx.Done():
		// Result, if the work ever produces one, is discarded.
		if runCtx.Err() != nil {
			return nil, task.NewCancelledError(fmt.Sprintf("task %q cancelled", t.ID))
		}
		return nil, task.NewTimeoutError(fmt.Sprintf("task %q exceeded %v", t.ID, t.Timeout))
	}
}

// translate maps context failures reported by the work itself onto the engine
// taxonomy; everything else passes through unchanged.
func (s *Service) translate(t *task.Task, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && t.Timeout > 0:
		return task.NewTimeoutError(fmt.Sprintf("task %q exceeded %v", t.ID, t.Timeout))
	case errors.Is(err, context.Canceled):
		return task.NewCancelledError(fmt.Sprintf("task %q cancelled", t.ID))
	default:
		return err
	}
}

// Cancel requests cooperative cancellation of a running or queued task. The
// work must observe its context to stop promptly; its eventual result is
// discarded either way. Cancel reports whether the id was known.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	if r, ok := s.running[id]; ok {
		r.cancelRequested = true
		if r.cancel != nil {
			r.cancel()
		}
		s.mu.Unlock()
		return true
	}
	removed := s.waiting.remove(id)
	s.mu.Unlock()
	if removed == nil {
		return false
	}
	removed.grant <- task.NewCancelledError(fmt.Sprintf("task %q cancelled while queued", id))
	return true
}

// CancelAll cancels every running task and drains the wait queue, failing all
// queued callers.
func (s *Service) CancelAll() {
	s.mu.Lock()
	for _, r := range s.running {
		r.cancelRequested = true
		if r.cancel != nil {
			r.cancel()
		}
	}
	drained := s.waiting.drain()
	s.mu.Unlock()
	for _, e := range drained {
		e.grant <- task.NewCancelledError(fmt.Sprintf("task %q cancelled while queued", e.task.ID))
	}
}

// Shutdown rejects new submissions and cancels all current work.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.CancelAll()
}

// Len returns the number of currently running tasks.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// QueueLen returns the number of parked submissions.
func (s *Service) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting.len()
}
