package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// MemoryStore is the single-node implementation of Store: everything
// lives in process memory, guarded by one mutex. Watch notifications are
// local to this instance only — see NotifyStore for the distributed
// cross-node variant.
type MemoryStore struct {
	mu sync.Mutex

	workflows map[string]*task.Workflow
	tasks     map[string]*task.Task
	events    map[string]scheduler.Event
	queue     []string

	subscribers map[chan Change]struct{}
}

// NewMemoryStore creates an empty single-node store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows:   make(map[string]*task.Workflow),
		tasks:       make(map[string]*task.Task),
		events:      make(map[string]scheduler.Event),
		subscribers: make(map[chan Change]struct{}),
	}
}

func (s *MemoryStore) broadcastLocked(ch Change) {
	for sub := range s.subscribers {
		select {
		case sub <- ch:
		default:
			// Slow subscriber; drop rather than block the writer, matching
			// the "writes are atomic per entity" contract which does not
			// extend to subscriber delivery guarantees.
		}
	}
}

func (s *MemoryStore) PutWorkflow(wf *task.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = wf
	s.broadcastLocked(Change{Kind: ChangeWorkflow, ID: wf.ID})
	return nil
}

func (s *MemoryStore) GetWorkflow(id string) (*task.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return wf, nil
}

func (s *MemoryStore) ListWorkflows() ([]*task.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*task.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteWorkflow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	return nil
}

func (s *MemoryStore) PutTask(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	s.broadcastLocked(Change{Kind: ChangeTask, ID: t.ID})
	return nil
}

func (s *MemoryStore) GetTask(id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

func (s *MemoryStore) ListTasks(workflowID string) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task.Task
	for _, t := range s.tasks {
		if t.WorkflowID == workflowID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CompleteTask is the atomic (single-mutex-critical-section) analogue of
// a compare-and-set across the task and its owning workflow's result
// map, per §4.3.
func (s *MemoryStore) CompleteTask(t *task.Task, result *task.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[t.ID] = t
	if result != nil {
		if wf, ok := s.workflows[t.WorkflowID]; ok {
			wf.RecordResult(t.ID, *result)
		}
	}
	s.broadcastLocked(Change{Kind: ChangeTask, ID: t.ID})
	s.broadcastLocked(Change{Kind: ChangeWorkflow, ID: t.WorkflowID})
	return nil
}

func (s *MemoryStore) SaveQueueSnapshot(taskIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]string(nil), taskIDs...)
	return nil
}

func (s *MemoryStore) LoadQueueSnapshot() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queue...), nil
}

func (s *MemoryStore) SaveEvent(ev scheduler.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.DedupeKey] = ev
	return nil
}

func (s *MemoryStore) DeleteEvent(dedupeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, dedupeKey)
	return nil
}

func (s *MemoryStore) ListEvents() ([]scheduler.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduler.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out, nil
}

func (s *MemoryStore) Watch() (<-chan Change, func()) {
	ch := make(chan Change, 32)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

var _ Store = (*MemoryStore)(nil)
