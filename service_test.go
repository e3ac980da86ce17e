package execkit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execkit/execkit"
	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/service/batch"
	"github.com/execkit/execkit/service/resource"
	"github.com/execkit/execkit/service/state"
	"github.com/execkit/execkit/stats"
)

func TestService(t *testing.T) {
	srv, err := execkit.New()
	require.NoError(t, err)

	ctx := context.Background()
	value, err := srv.Execute(ctx, task.New("hello"), func(ctx context.Context) (interface{}, error) {
		return "world", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "world", value)

	snapshot := srv.Stats()
	assert.Equal(t, 1, snapshot.Submitted)
	assert.Equal(t, 1, snapshot.Completed)
	assert.Equal(t, 0, srv.ActiveTasks())
}

func TestServiceRunAll(t *testing.T) {
	srv, err := execkit.New()
	require.NoError(t, err)

	items := make([]batch.Item, 0, 5)
	for i := 0; i < 5; i++ {
		n := i
		items = append(items, batch.Item{ID: fmt.Sprintf("item-%d", i), Work: func(ctx context.Context) (interface{}, error) {
			return n, nil
		}})
	}
	results := srv.RunAll(context.Background(), items, 2)
	assert.Len(t, results, 5)
}

func TestServiceSharedState(t *testing.T) {
	srv, err := execkit.New()
	require.NoError(t, err)

	srv.State().Set("analysis:/main.go:symbols", []string{"Foo", "Bar"})
	symbols, ok := state.GetTyped[[]string](srv.State(), "analysis:/main.go:symbols")
	assert.True(t, ok)
	assert.Equal(t, []string{"Foo", "Bar"}, symbols)
}

func TestServiceResourceQuery(t *testing.T) {
	config := execkit.DefaultConfig()
	config.Resources = resource.Limits{MaxMemoryMB: 100, MaxCPUUnits: 4, MaxNetworkOps: 4}
	srv, err := execkit.New(execkit.WithConfig(config))
	require.NoError(t, err)

	running := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = srv.Execute(context.Background(),
			task.New("heavy", task.WithRequirement(&task.Requirement{MemoryMB: 60})),
			func(ctx context.Context) (interface{}, error) {
				close(running)
				<-release
				return nil, nil
			})
	}()
	<-running
	assert.Equal(t, 60, srv.Resources().Usage().MemoryMB)
	assert.Equal(t, 1, srv.ActiveTasks())
	close(release)
}

func TestServiceShutdown(t *testing.T) {
	srv, err := execkit.New()
	require.NoError(t, err)

	srv.State().Set("cache", 1)
	running := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		_, execErr := srv.Execute(context.Background(), task.New("long"), func(ctx context.Context) (interface{}, error) {
			close(running)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		finished <- execErr
	}()
	<-running

	srv.Shutdown(context.Background())
	assert.Equal(t, task.KindCancelled, task.KindOf(<-finished))
	assert.Equal(t, 0, srv.State().Len(), "shared state cleared")

	_, err = srv.Execute(context.Background(), task.New("after"), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(t, task.KindCancelled, task.KindOf(err))
}

func TestServiceStatsCallback(t *testing.T) {
	updates := make(chan stats.Stats, 16)
	srv, err := execkit.New(execkit.WithStatsCallback(func(s stats.Stats) {
		select {
		case updates <- s:
		default:
		}
	}))
	require.NoError(t, err)

	_, _ = srv.Execute(context.Background(), task.New("observed"), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	select {
	case s := <-updates:
		assert.GreaterOrEqual(t, s.Submitted, 1)
	case <-time.After(time.Second):
		t.Fatal("no stats callback received")
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	config := execkit.DefaultConfig()
	config.Executor.MaxConcurrentTasks = 0
	_, err := execkit.New(execkit.WithConfig(config))
	assert.Error(t, err)
}
