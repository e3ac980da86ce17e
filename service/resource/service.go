// Package resource implements admission control against a fixed budget of
// abstract resource dimensions (memory, CPU share, network-operation slots).
// Reserve is a hard accept/reject decision, never a wait: callers that want
// queueing combine it with their own retry policy.
package resource

import (
	"fmt"
	"log"
	"sync"

	"github.com/execkit/execkit/model/task"
)

// Limits configures the per-dimension budget. A zero limit disables the
// dimension entirely, rejecting any reservation against it.
type Limits struct {
	MaxMemoryMB   int `json:"maxMemoryMB" yaml:"maxMemoryMB"`
	MaxCPUUnits   int `json:"maxCPUUnits" yaml:"maxCPUUnits"`
	MaxNetworkOps int `json:"maxNetworkOps" yaml:"maxNetworkOps"`
}

// DefaultLimits returns the standard budget.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryMB:   512,
		MaxCPUUnits:   8,
		MaxNetworkOps: 32,
	}
}

// Validate returns an error describing invalid settings or nil.
func (l Limits) Validate() error {
	if l.MaxMemoryMB < 0 || l.MaxCPUUnits < 0 || l.MaxNetworkOps < 0 {
		return fmt.Errorf("resource limits must not be negative: %+v", l)
	}
	return nil
}

// Service is the resource ledger. All bookkeeping is serialized behind a
// mutex; the ledger performs no I/O and never blocks a caller.
type Service struct {
	mu     sync.Mutex
	limits Limits
	usage  task.Usage
}

// New creates a ledger with the supplied limits.
func New(limits Limits) *Service {
	return &Service{limits: limits}
}

// Reserve admits or rejects the requirement. On success the caller owns the
// reservation and must release exactly what it reserved, in a deferred block,
// once the associated work finishes or fails.
func (s *Service) Reserve(req *task.Requirement) error {
	if req == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage.MemoryMB+req.MemoryMB > s.limits.MaxMemoryMB {
		return task.NewResourceUnavailableError(fmt.Sprintf("memory: %v of %vMB in use, requested %vMB", s.usage.MemoryMB, s.limits.MaxMemoryMB, req.MemoryMB))
	}
	if s.usage.CPUUnits+req.CPUUnits > s.limits.MaxCPUUnits {
		return task.NewResourceUnavailableError(fmt.Sprintf("cpu: %v of %v units in use, requested %v", s.usage.CPUUnits, s.limits.MaxCPUUnits, req.CPUUnits))
	}
	if s.usage.NetworkOps+req.NetworkOps > s.limits.MaxNetworkOps {
		return task.NewResourceUnavailableError(fmt.Sprintf("network: %v of %v slots in use, requested %v", s.usage.NetworkOps, s.limits.MaxNetworkOps, req.NetworkOps))
	}
	s.usage.MemoryMB += req.MemoryMB
	s.usage.CPUUnits += req.CPUUnits
	s.usage.NetworkOps += req.NetworkOps
	return nil
}

// Release returns a reservation to the budget. Totals clamp at zero; going
// below zero means a release without a matching reserve, which is a caller
// bug and is logged.
func (s *Service) Release(req *task.Requirement) {
	if req == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.MemoryMB = clamp(s.usage.MemoryMB-req.MemoryMB, "memory")
	s.usage.CPUUnits = clamp(s.usage.CPUUnits-req.CPUUnits, "cpu")
	s.usage.NetworkOps = clamp(s.usage.NetworkOps-req.NetworkOps, "network")
}

// Usage returns a snapshot of the outstanding reservations.
func (s *Service) Usage() task.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Available returns the remaining budget per dimension.
func (s *Service) Available() task.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return task.Usage{
		MemoryMB:   s.limits.MaxMemoryMB - s.usage.MemoryMB,
		CPUUnits:   s.limits.MaxCPUUnits - s.usage.CPUUnits,
		NetworkOps: s.limits.MaxNetworkOps - s.usage.NetworkOps,
	}
}

// Limits returns the configured budget.
func (s *Service) Limits() Limits {
	return s.limits
}

func clamp(value int, dimension string) int {
	if value < 0 {
		log.Printf("resource: %v usage went negative (release without matching reserve)", dimension)
		return 0
	}
	return value
}
