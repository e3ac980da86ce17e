package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/service/executor"
)

func newRunner(t *testing.T) *executor.Service {
	s, err := executor.New(executor.WithMaxConcurrentTasks(16))
	require.NoError(t, err)
	return s
}

func TestRunAllCollectsEveryOutcome(t *testing.T) {
	runner := newRunner(t)
	items := make([]Item, 0, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("file-%d", i)
		n := i
		items = append(items, Item{ID: id, Work: func(ctx context.Context) (interface{}, error) {
			if n%3 == 0 {
				return nil, task.NewCustomError(fmt.Sprintf("parse error in %v", n))
			}
			return n * 2, nil
		}})
	}

	results := RunAll(context.Background(), runner, items, 4)
	assert.Len(t, results, 10, "one entry per submitted id, failures included")
	for i := 0; i < 10; i++ {
		result, ok := results[fmt.Sprintf("file-%d", i)]
		require.True(t, ok)
		if i%3 == 0 {
			assert.Error(t, result.Err)
		} else {
			assert.NoError(t, result.Err)
			assert.Equal(t, i*2, result.Value)
		}
	}
}

func TestRunAllBoundsWave(t *testing.T) {
	runner := newRunner(t)
	var inFlight, peak int32
	items := make([]Item, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, Item{ID: fmt.Sprintf("t-%d", i), Work: func(ctx context.Context) (interface{}, error) {
			current := atomic.AddInt32(&inFlight, 1)
			for {
				observed := atomic.LoadInt32(&peak)
				if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil, nil
		}})
	}

	results := RunAll(context.Background(), runner, items, 3)
	assert.Len(t, results, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRunAllEmptyInput(t *testing.T) {
	assert.Empty(t, RunAll(context.Background(), newRunner(t), nil, 4))
}

func TestRunAllUsesProvidedTask(t *testing.T) {
	runner := newRunner(t)
	custom := task.New("custom", task.WithTimeout(50*time.Millisecond))
	results := RunAll(context.Background(), runner, []Item{{
		ID:   "custom",
		Task: custom,
		Work: func(ctx context.Context) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}, 1)
	assert.Equal(t, task.KindTimeout, task.KindOf(results["custom"].Err))
}

func TestRunAllDrainsBeforeReturning(t *testing.T) {
	runner := newRunner(t)
	var finished int32
	items := make([]Item, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, Item{ID: fmt.Sprintf("d-%d", i), Work: func(ctx context.Context) (interface{}, error) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&finished, 1)
			return nil, nil
		}})
	}
	RunAll(context.Background(), runner, items, 2)
	assert.Equal(t, int32(6), atomic.LoadInt32(&finished), "fully drained on return")
}
