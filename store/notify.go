package store

import (
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// NotifyStore is the distributed-stand-in implementation of Store: data
// lives in an embedded MemoryStore (still a single process in this
// module, since a real network-backed store is an external collaborator
// per §1), but Watch subscribers receive notifications fanned out
// through a shared Bus rather than scoped to this instance alone —
// exercising the same contract a networked store satisfies.
type NotifyStore struct {
	NodeID string
	mem    *MemoryStore
	bus    *Bus
}

// NewNotifyStore creates a NotifyStore identified by nodeID, publishing
// to and subscribing from bus. Multiple NotifyStores sharing one Bus
// simulate a small distributed cluster.
func NewNotifyStore(nodeID string, bus *Bus) *NotifyStore {
	if bus == nil {
		bus = NewBus()
	}
	return &NotifyStore{NodeID: nodeID, mem: NewMemoryStore(), bus: bus}
}

func (s *NotifyStore) PutWorkflow(wf *task.Workflow) error {
	if err := s.mem.PutWorkflow(wf); err != nil {
		return err
	}
	s.bus.publish(Change{Kind: ChangeWorkflow, ID: wf.ID})
	return nil
}

func (s *NotifyStore) GetWorkflow(id string) (*task.Workflow, error) { return s.mem.GetWorkflow(id) }

func (s *NotifyStore) ListWorkflows() ([]*task.Workflow, error) { return s.mem.ListWorkflows() }

func (s *NotifyStore) DeleteWorkflow(id string) error { return s.mem.DeleteWorkflow(id) }

func (s *NotifyStore) PutTask(t *task.Task) error {
	if err := s.mem.PutTask(t); err != nil {
		return err
	}
	s.bus.publish(Change{Kind: ChangeTask, ID: t.ID})
	return nil
}

func (s *NotifyStore) GetTask(id string) (*task.Task, error) { return s.mem.GetTask(id) }

func (s *NotifyStore) ListTasks(workflowID string) ([]*task.Task, error) {
	return s.mem.ListTasks(workflowID)
}

func (s *NotifyStore) CompleteTask(t *task.Task, result *task.Result) error {
	if err := s.mem.CompleteTask(t, result); err != nil {
		return err
	}
	s.bus.publish(Change{Kind: ChangeTask, ID: t.ID})
	s.bus.publish(Change{Kind: ChangeWorkflow, ID: t.WorkflowID})
	return nil
}

func (s *NotifyStore) SaveQueueSnapshot(taskIDs []string) error { return s.mem.SaveQueueSnapshot(taskIDs) }

func (s *NotifyStore) LoadQueueSnapshot() ([]string, error) { return s.mem.LoadQueueSnapshot() }

func (s *NotifyStore) SaveEvent(ev scheduler.Event) error { return s.mem.SaveEvent(ev) }

func (s *NotifyStore) DeleteEvent(dedupeKey string) error { return s.mem.DeleteEvent(dedupeKey) }

func (s *NotifyStore) ListEvents() ([]scheduler.Event, error) { return s.mem.ListEvents() }

// Watch subscribes to the shared Bus, so this node observes writes made
// by any NotifyStore sharing the same Bus, not only its own.
func (s *NotifyStore) Watch() (<-chan Change, func()) {
	return s.bus.subscribe()
}

var _ Store = (*NotifyStore)(nil)
