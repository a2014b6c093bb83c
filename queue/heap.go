package queue

import (
	"container/heap"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// item is one entry in the priority heap: the task, its outstanding
// (not-yet-completed) dependency ids, an insertion sequence for FIFO
// ordering within a priority band, and the index container/heap needs
// for O(log n) removal.
type item struct {
	task      *task.Task
	blocking  map[string]bool
	seq       int64
	heapIndex int
}

func (it *item) ready() bool {
	return len(it.blocking) == 0
}

// priorityHeap implements container/heap.Interface. Ordering: higher
// task.Priority first; within a priority, earlier insertion (lower seq)
// first, per §4.4 "within a priority, insertion order".
type priorityHeap []*item

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *priorityHeap) Push(x any) {
	it := x.(*item)
	it.heapIndex = len(*h)
	*h = append(*h, it)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.heapIndex = -1
	*h = old[:n-1]
	return it
}

var _ heap.Interface = (*priorityHeap)(nil)
