// Package batch fans a set of independent tasks out over the executor,
// bounding the in-flight wave and collecting every task's outcome. A failing
// task never aborts the batch; its error is captured alongside the successes.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/execkit/execkit/model/task"
	"github.com/execkit/execkit/tracing"
)

// Runner executes a single task; *executor.Service satisfies it.
type Runner interface {
	Execute(ctx context.Context, t *task.Task, work task.Work) (interface{}, error)
}

// Item pairs an id with its unit of work. Task is optional; when nil a
// normal-priority descriptor is created from the id.
type Item struct {
	ID   string
	Task *task.Task
	Work task.Work
}

// Result is the captured outcome of one item: a value or an error, never
// both.
type Result struct {
	Value interface{}
	Err   error
}

// RunAll starts up to maxConcurrency items immediately and replenishes the
// wave as items complete, until the input is exhausted. It returns one entry
// per submitted id; the map carries a key for every item even when its work
// failed. RunAll returns only after every started item has finished.
func RunAll(ctx context.Context, runner Runner, items []Item, maxConcurrency int) map[string]Result {
	results := make(map[string]Result, len(items))
	if len(items) == 0 {
		return results
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("batch.RunAll %v items", len(items)), "INTERNAL")
	defer tracing.EndSpan(span, nil)

	if maxConcurrency <= 0 || maxConcurrency > len(items) {
		maxConcurrency = len(items)
	}
	slots := make(chan struct{}, maxConcurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item Item) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			t := item.Task
			if t == nil {
				t = task.New(item.ID)
			}
			value, err := runner.Execute(ctx, t, item.Work)
			mu.Lock()
			results[item.ID] = Result{Value: value, Err: err}
			mu.Unlock()
		}(item)
	}
	wg.Wait()
	return results
}
