package executor

import (
	"github.com/execkit/execkit/service/resource"
	"github.com/execkit/execkit/stats"
)

// Option customises the executor service.
type Option func(s *Service)

// WithConfig sets the executor configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithMaxConcurrentTasks overrides the concurrency limit.
func WithMaxConcurrentTasks(count int) Option {
	return func(s *Service) { s.config.MaxConcurrentTasks = count }
}

// WithLedger attaches a resource ledger; tasks carrying a requirement are
// admitted against it before they run. Without a ledger, requirements are
// ignored.
func WithLedger(ledger *resource.Service) Option {
	return func(s *Service) { s.ledger = ledger }
}

// WithStats attaches a counter tracker updated on every state transition.
func WithStats(tracker *stats.Stats) Option {
	return func(s *Service) { s.tracker = tracker }
}
