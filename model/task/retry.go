package task

import (
	"math"
	"time"
)

// RetryPolicy controls how failed attempts are repeated. MaxAttempts counts
// the initial attempt, so MaxAttempts=1 disables retrying.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Retryable    []ErrorKind
}

// DefaultRetryPolicy returns the standard exponential policy: three attempts,
// 100ms initial delay doubling up to 5s, retrying timeouts and resource
// denials.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Retryable:    []ErrorKind{KindTimeout, KindResourceUnavailable},
	}
}

// SingleAttempt is the implicit policy of a task submitted without one.
func SingleAttempt() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// ShouldRetry reports whether another attempt is warranted after the given
// error on the given 1-indexed attempt.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if p == nil || attempt >= p.MaxAttempts || err == nil {
		return false
	}
	kind := KindOf(err)
	for _, retryable := range p.Retryable {
		if kind == retryable {
			return true
		}
	}
	return false
}

// Delay computes the backoff before attempt+1, for the given 1-indexed
// attempt: min(InitialDelay * Multiplier^(attempt-1), MaxDelay). The result
// is non-decreasing in attempt and never exceeds MaxDelay.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil || attempt < 1 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}
