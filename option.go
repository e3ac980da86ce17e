package execkit

import (
	"github.com/execkit/execkit/service/state"
	"github.com/execkit/execkit/stats"
	"github.com/execkit/execkit/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithStore supplies a pre-populated shared-state store instead of a fresh
// one.
func WithStore(store *state.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithStatsCallback registers a callback invoked with a counter snapshot
// after every task state transition.
func WithStatsCallback(onChange func(stats.Stats)) Option {
	return func(s *Service) { s.onStats = onChange }
}

// WithTracing configures OpenTelemetry tracing. An empty outputFile uses the
// stdout exporter; otherwise traces go to the supplied file. Safe to call
// multiple times; the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
