// Package queue implements the task queue (C4): an in-memory priority
// heap with dependency gating. The heap is not mirrored to the
// persistence backend: neither this package nor the coordinator calls
// store.Store's SaveQueueSnapshot, so the queue is not rebuilt after a
// restart.
package queue

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// DefaultScanLimit bounds how many heap entries tryDequeueReady inspects
// before giving up when the top of the heap is not eligible (§4.4).
const DefaultScanLimit = 64

// Capable reports whether a provider-capability check matches a task's
// (protocol, method). The coordinator supplies this as a closure over
// its provider registry view.
type Capable func(protocol, method string) bool

// Queue is the priority heap with dependency gating described in §4.4.
type Queue struct {
	mu        sync.Mutex
	h         priorityHeap
	index     map[string]*item // task id -> heap entry, while queued
	scanLimit int
	seq       int64
}

// New creates an empty queue with the default bounded-scan limit.
func New() *Queue {
	return NewWithScanLimit(DefaultScanLimit)
}

// NewWithScanLimit creates an empty queue with a custom bounded-scan
// limit (for tests and tuned deployments).
func NewWithScanLimit(scanLimit int) *Queue {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Queue{index: make(map[string]*item), scanLimit: scanLimit}
}

// Enqueue inserts t if not already present, tracking blocking as the set
// of dependency task ids not yet terminal-successful. Idempotent by task
// id, per §8 "enqueue(T); enqueue(T) is observationally equivalent to
// enqueue(T)".
func (q *Queue) Enqueue(t *task.Task, blocking []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.index[t.ID]; exists {
		return
	}

	set := make(map[string]bool, len(blocking))
	for _, id := range blocking {
		set[id] = true
	}

	q.seq++
	it := &item{task: t, blocking: set, seq: q.seq}
	heap.Push(&q.h, it)
	q.index[t.ID] = it
}

// TryDequeueReady returns the highest-priority task whose dependencies
// are all satisfied and whose (protocol, method) satisfies capable. If
// the top of the heap is not eligible, a bounded scan (default 64) looks
// for a compatible task further down; if none is found, it returns
// (nil, false) without mutating the queue.
func (q *Queue) TryDequeueReady(capable Capable) (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var popped []*item
	found := (*item)(nil)

	for q.h.Len() > 0 && len(popped) < q.scanLimit {
		it := heap.Pop(&q.h).(*item)
		if it.ready() && capable(it.task.Protocol, it.task.Method) {
			found = it
			break
		}
		popped = append(popped, it)
	}

	for _, it := range popped {
		heap.Push(&q.h, it)
	}

	if found == nil {
		return nil, false
	}

	delete(q.index, found.task.ID)
	return found.task, true
}

// MarkCompleted removes taskID from the blocking set of every queued
// dependent. It does not enqueue newly-ready tasks; the coordinator
// enqueues them after persisting the result and consulting the
// dependency resolver, per §4.4.
func (q *Queue) MarkCompleted(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range q.h {
		delete(it.blocking, taskID)
	}
}

// Remove deletes taskID from the queue if present, returning
// ErrTaskNotQueued otherwise. Used for cancellation.
func (q *Queue) Remove(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.index[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotQueued, taskID)
	}
	heap.Remove(&q.h, it.heapIndex)
	delete(q.index, taskID)
	return nil
}

// Size returns the number of queued tasks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// Contains reports whether taskID is currently queued.
func (q *Queue) Contains(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.index[taskID]
	return ok
}

// Snapshot returns the queued tasks in heap (not fully sorted) order,
// for persistence mirroring and observability. Callers must not mutate
// the returned tasks in place.
func (q *Queue) Snapshot() []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*task.Task, len(q.h))
	for i, it := range q.h {
		out[i] = it.task
	}
	return out
}
