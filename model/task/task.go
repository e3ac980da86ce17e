package task

import (
	"context"
	"time"

	"github.com/execkit/execkit/internal/clock"
	"github.com/execkit/execkit/internal/idgen"
)

// Priority orders tasks competing for an execution slot. Higher values win.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Work is an opaque, cancellable unit of work. Implementations must observe
// ctx cancellation to stop promptly; the engine never interprets the result.
type Work func(ctx context.Context) (interface{}, error)

// Task describes a single submission to the executor. It is immutable once
// created; the executor owns it from admission until its result is delivered.
type Task struct {
	ID          string
	Priority    Priority
	Timeout     time.Duration
	Retry       *RetryPolicy
	Requirement *Requirement
	CreatedAt   time.Time
}

// Option mutates a task under construction.
type Option func(t *Task)

// WithPriority sets the scheduling priority.
func WithPriority(p Priority) Option {
	return func(t *Task) { t.Priority = p }
}

// WithTimeout sets the per-attempt deadline. Zero means no deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Task) { t.Timeout = timeout }
}

// WithRetry sets the retry policy. A task without one runs exactly once.
func WithRetry(policy *RetryPolicy) Option {
	return func(t *Task) { t.Retry = policy }
}

// WithRequirement attaches a resource requirement; the executor reserves it
// before the work starts and releases it when the work finishes.
func WithRequirement(req *Requirement) Option {
	return func(t *Task) { t.Requirement = req }
}

// New creates a task descriptor. An empty id is replaced with a generated one.
func New(id string, options ...Option) *Task {
	if id == "" {
		id = idgen.New()
	}
	t := &Task{
		ID:        id,
		Priority:  PriorityNormal,
		CreatedAt: clock.Now(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Requirement declares the resource budget a task consumes while running.
// The reserving caller is responsible for releasing exactly what it reserved.
type Requirement struct {
	MemoryMB   int
	CPUUnits   int
	NetworkOps int
	Priority   Priority
}

// Usage is a point-in-time snapshot of reserved resources per dimension.
type Usage struct {
	MemoryMB   int
	CPUUnits   int
	NetworkOps int
}
