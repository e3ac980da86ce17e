// Package policy carries optional execution defaults through a context. It is
// deliberately decoupled from the executor so that using it is entirely
// opt-in: callers that do not embed a Policy in their context keep the plain
// per-task behaviour.
package policy

import (
	"context"
	"strings"
	"time"

	"github.com/execkit/execkit/model/task"
)

// Policy supplies defaults and coarse filtering for task submissions.
//
//   - DefaultTimeout and DefaultRetry apply to tasks that leave those fields
//     unset.
//   - BlockList rejects matching task ids outright regardless of defaults.
//
// A nil *Policy means "no defaults, allow everything" and is therefore the
// zero-cost default.
type Policy struct {
	DefaultTimeout time.Duration
	DefaultRetry   *task.RetryPolicy
	BlockList      []string
}

// IsBlocked reports whether the task id is on the block list. Matching is by
// exact, case-insensitive comparison.
func (p *Policy) IsBlocked(id string) bool {
	if p == nil {
		return false
	}
	normalized := strings.ToLower(id)
	for _, blocked := range p.BlockList {
		if normalized == strings.ToLower(blocked) {
			return true
		}
	}
	return false
}

// Apply returns a copy of t with policy defaults filled in where the task
// left them unset. A nil policy or a fully specified task returns t
// unchanged.
func (p *Policy) Apply(t *task.Task) *task.Task {
	if p == nil || t == nil {
		return t
	}
	if (t.Timeout != 0 || p.DefaultTimeout == 0) && (t.Retry != nil || p.DefaultRetry == nil) {
		return t
	}
	applied := *t
	if applied.Timeout == 0 {
		applied.Timeout = p.DefaultTimeout
	}
	if applied.Retry == nil {
		applied.Retry = p.DefaultRetry
	}
	return &applied
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds the policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy from ctx, or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if p, ok := ctx.Value(ctxKey).(*Policy); ok {
		return p
	}
	return nil
}
