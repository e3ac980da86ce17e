package executor

import (
	"container/heap"

	"github.com/execkit/execkit/model/task"
)

// entry is a parked submission: the task descriptor plus the grant channel
// its caller is suspended on. An entry leaves the queue exactly once, either
// by normal dequeue, by caller abandonment, or by explicit cancellation.
type entry struct {
	task  *task.Task
	grant chan error
	seq   uint64
	index int
}

// waitQueue orders parked submissions by descending priority, FIFO within a
// priority (monotonic sequence number as tie-break). It is not safe for
// concurrent use; the executor serializes access behind its own lock.
type waitQueue struct {
	entries entryHeap
	limit   int
}

func newWaitQueue(limit int) *waitQueue {
	return &waitQueue{limit: limit}
}

func (q *waitQueue) push(e *entry) bool {
	if q.limit > 0 && len(q.entries) >= q.limit {
		return false
	}
	heap.Push(&q.entries, e)
	return true
}

func (q *waitQueue) pop() *entry {
	if len(q.entries) == 0 {
		return nil
	}
	return heap.Pop(&q.entries).(*entry)
}

// contains reports whether a parked submission carries the given task id.
func (q *waitQueue) contains(id string) bool {
	for _, e := range q.entries {
		if e.task.ID == id {
			return true
		}
	}
	return false
}

// remove extracts the first entry with the given task id, or nil.
func (q *waitQueue) remove(id string) *entry {
	for i, e := range q.entries {
		if e.task.ID == id {
			heap.Remove(&q.entries, i)
			return e
		}
	}
	return nil
}

// drain empties the queue, returning the removed entries in release order.
func (q *waitQueue) drain() []*entry {
	drained := make([]*entry, 0, len(q.entries))
	for {
		e := q.pop()
		if e == nil {
			return drained
		}
		drained = append(drained, e)
	}
}

func (q *waitQueue) len() int {
	return len(q.entries)
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
