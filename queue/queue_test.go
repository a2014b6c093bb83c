package queue

import (
	"testing"

	"github.com/tailored-agentic-units/orchestrator/task"
)

func newTask(id string, priority task.Priority, protocol, method string) *task.Task {
	t := task.NewTask("wf1", protocol, method, map[string]any{})
	t.ID = id
	t.Priority = priority
	t.Status = task.StatusQueued
	return t
}

func anyCapable(protocol, method string) bool { return true }

func TestEnqueueIdempotent(t *testing.T) {
	q := New()
	tk := newTask("t1", task.PriorityNormal, "llm/v1", "generate")
	q.Enqueue(tk, nil)
	q.Enqueue(tk, nil)
	if q.Size() != 1 {
		t.Fatalf("expected size 1 after duplicate enqueue, got %d", q.Size())
	}
}

func TestPriorityOrdering(t *testing.T) {
	q := New()
	low := newTask("low", task.PriorityLow, "p/v1", "m")
	urgent := newTask("urgent", task.PriorityUrgent, "p/v1", "m")
	normal := newTask("normal", task.PriorityNormal, "p/v1", "m")

	q.Enqueue(low, nil)
	q.Enqueue(urgent, nil)
	q.Enqueue(normal, nil)

	got, ok := q.TryDequeueReady(anyCapable)
	if !ok || got.ID != "urgent" {
		t.Fatalf("expected urgent task first, got %v", got)
	}
	got, ok = q.TryDequeueReady(anyCapable)
	if !ok || got.ID != "normal" {
		t.Fatalf("expected normal task second, got %v", got)
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	q := New()
	first := newTask("first", task.PriorityNormal, "p/v1", "m")
	second := newTask("second", task.PriorityNormal, "p/v1", "m")
	q.Enqueue(first, nil)
	q.Enqueue(second, nil)

	got, _ := q.TryDequeueReady(anyCapable)
	if got.ID != "first" {
		t.Fatalf("expected FIFO within priority, got %s", got.ID)
	}
}

func TestDependencyGating(t *testing.T) {
	q := New()
	blocked := newTask("blocked", task.PriorityUrgent, "p/v1", "m")
	free := newTask("free", task.PriorityLow, "p/v1", "m")

	q.Enqueue(blocked, []string{"dep1"})
	q.Enqueue(free, nil)

	got, ok := q.TryDequeueReady(anyCapable)
	if !ok || got.ID != "free" {
		t.Fatalf("expected free task to be returned despite lower priority, got %v", got)
	}

	if _, ok := q.TryDequeueReady(anyCapable); ok {
		t.Fatalf("expected blocked to remain ineligible")
	}

	q.Enqueue(blocked, []string{"dep1"})
	q.MarkCompleted("dep1")
	got, ok = q.TryDequeueReady(anyCapable)
	if !ok || got.ID != "blocked" {
		t.Fatalf("expected blocked task to become ready after MarkCompleted, got %v", got)
	}
}

func TestCapabilityMismatchFallsThroughScan(t *testing.T) {
	q := New()
	wrongCap := newTask("wrong", task.PriorityUrgent, "python/v1", "execute")
	rightCap := newTask("right", task.PriorityLow, "llm/v1", "generate")
	q.Enqueue(wrongCap, nil)
	q.Enqueue(rightCap, nil)

	capable := func(protocol, method string) bool {
		return protocol == "llm/v1" && method == "generate"
	}

	got, ok := q.TryDequeueReady(capable)
	if !ok || got.ID != "right" {
		t.Fatalf("expected right-capability task, got %v", got)
	}
	if q.Size() != 1 {
		t.Fatalf("expected the mismatched task to remain queued, got size %d", q.Size())
	}
}

func TestRemoveAndSize(t *testing.T) {
	q := New()
	tk := newTask("t1", task.PriorityNormal, "p/v1", "m")
	q.Enqueue(tk, nil)
	if err := q.Remove("t1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if q.Size() != 0 {
		t.Fatalf("expected empty queue, got size %d", q.Size())
	}
	if err := q.Remove("t1"); err == nil {
		t.Fatalf("expected ErrTaskNotQueued on second remove")
	}
}
