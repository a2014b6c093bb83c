package store

import (
	"testing"
	"time"

	"github.com/tailored-agentic-units/orchestrator/task"
)

func TestMemoryStoreWorkflowRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	wf := task.NewWorkflow("wf", task.ErrorPolicyFailFast, nil)

	if err := s.PutWorkflow(wf); err != nil {
		t.Fatalf("PutWorkflow: %v", err)
	}
	got, err := s.GetWorkflow(wf.ID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got.ID != wf.ID {
		t.Fatalf("round-trip mismatch: %v", got)
	}
}

func TestMemoryStoreGetWorkflowNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetWorkflow("missing"); err == nil {
		t.Fatal("expected ErrWorkflowNotFound")
	}
}

func TestMemoryStoreCompleteTaskRecordsResult(t *testing.T) {
	s := NewMemoryStore()
	tk := task.NewTask("wf1", "llm/v1", "generate", nil)
	wf := task.NewWorkflow("wf", task.ErrorPolicyFailFast, []*task.Task{tk})
	tk.WorkflowID = wf.ID

	if err := s.PutWorkflow(wf); err != nil {
		t.Fatal(err)
	}

	tk.Status = task.StatusCompleted
	result := &task.Result{TaskID: tk.ID, Value: map[string]any{"n": 1.0}}
	if err := s.CompleteTask(tk, result); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	got, _ := s.GetWorkflow(wf.ID)
	if _, ok := got.Results[tk.ID]; !ok {
		t.Fatalf("expected result recorded in workflow")
	}
}

func TestMemoryStoreWatchNotifiesLocalWrites(t *testing.T) {
	s := NewMemoryStore()
	ch, cancel := s.Watch()
	defer cancel()

	tk := task.NewTask("wf1", "p/v1", "m", nil)
	if err := s.PutTask(tk); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-ch:
		if change.ID != tk.ID {
			t.Fatalf("unexpected change: %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected watch notification")
	}
}

func TestNotifyStoreCrossNodeNotification(t *testing.T) {
	bus := NewBus()
	nodeA := NewNotifyStore("a", bus)
	nodeB := NewNotifyStore("b", bus)

	ch, cancel := nodeB.Watch()
	defer cancel()

	tk := task.NewTask("wf1", "p/v1", "m", nil)
	if err := nodeA.PutTask(tk); err != nil {
		t.Fatal(err)
	}

	select {
	case change := <-ch:
		if change.ID != tk.ID {
			t.Fatalf("unexpected change: %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("expected nodeB to observe nodeA's write via shared bus")
	}
}

func TestGetBackend(t *testing.T) {
	s, err := GetBackend("memory")
	if err != nil {
		t.Fatalf("GetBackend: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", s)
	}

	if _, err := GetBackend("unknown"); err == nil {
		t.Fatal("expected ErrUnknownBackend")
	}
}
