package scheduler

import "container/heap"

// eventItem is one heap entry, tracking the index container/heap needs
// for O(log n) removal by dedupe key.
type eventItem struct {
	ev        Event
	heapIndex int
}

// eventHeap is a min-heap ordered by Event.At.
type eventHeap []*eventItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool { return h[i].ev.At.Before(h[j].ev.At) }

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *eventHeap) Push(x any) {
	it := x.(*eventItem)
	it.heapIndex = len(*h)
	*h = append(*h, it)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.heapIndex = -1
	*h = old[:n-1]
	return it
}

var _ heap.Interface = (*eventHeap)(nil)
