package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/execkit/execkit/model/task"
)

func TestReserveRelease(t *testing.T) {
	ledger := New(Limits{MaxMemoryMB: 200, MaxCPUUnits: 4, MaxNetworkOps: 10})

	first := &task.Requirement{MemoryMB: 150}
	assert.NoError(t, ledger.Reserve(first))
	assert.Equal(t, 150, ledger.Usage().MemoryMB)

	second := &task.Requirement{MemoryMB: 100}
	err := ledger.Reserve(second)
	assert.True(t, errors.Is(err, &task.Error{Kind: task.KindResourceUnavailable}))
	assert.Equal(t, 150, ledger.Usage().MemoryMB, "rejected reservation must not change usage")

	ledger.Release(first)
	assert.NoError(t, ledger.Reserve(second))
	assert.Equal(t, 100, ledger.Usage().MemoryMB)
}

func TestReserveRejectsPerDimension(t *testing.T) {
	ledger := New(Limits{MaxMemoryMB: 100, MaxCPUUnits: 2, MaxNetworkOps: 1})
	assert.NoError(t, ledger.Reserve(&task.Requirement{NetworkOps: 1}))
	err := ledger.Reserve(&task.Requirement{NetworkOps: 1})
	assert.Equal(t, task.KindResourceUnavailable, task.KindOf(err))

	err = ledger.Reserve(&task.Requirement{CPUUnits: 3})
	assert.Equal(t, task.KindResourceUnavailable, task.KindOf(err))
}

func TestReleaseClampsAtZero(t *testing.T) {
	ledger := New(DefaultLimits())
	ledger.Release(&task.Requirement{MemoryMB: 10, CPUUnits: 1})
	usage := ledger.Usage()
	assert.Equal(t, 0, usage.MemoryMB)
	assert.Equal(t, 0, usage.CPUUnits)
}

func TestAvailable(t *testing.T) {
	ledger := New(Limits{MaxMemoryMB: 100, MaxCPUUnits: 4, MaxNetworkOps: 8})
	assert.NoError(t, ledger.Reserve(&task.Requirement{MemoryMB: 40, CPUUnits: 1, NetworkOps: 2}))
	available := ledger.Available()
	assert.Equal(t, 60, available.MemoryMB)
	assert.Equal(t, 3, available.CPUUnits)
	assert.Equal(t, 6, available.NetworkOps)
}

// Usage must never exceed the limit for any interleaving of reserve/release.
func TestAdmissionInvariantUnderConcurrency(t *testing.T) {
	limits := Limits{MaxMemoryMB: 50, MaxCPUUnits: 50, MaxNetworkOps: 50}
	ledger := New(limits)
	req := &task.Requirement{MemoryMB: 7, CPUUnits: 3, NetworkOps: 5}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.Reserve(req) == nil {
				usage := ledger.Usage()
				assert.LessOrEqual(t, usage.MemoryMB, limits.MaxMemoryMB)
				assert.LessOrEqual(t, usage.CPUUnits, limits.MaxCPUUnits)
				assert.LessOrEqual(t, usage.NetworkOps, limits.MaxNetworkOps)
				ledger.Release(req)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, task.Usage{}, ledger.Usage())
}

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, DefaultLimits().Validate())
	assert.Error(t, Limits{MaxMemoryMB: -1}.Validate())
}
