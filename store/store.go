// Package store implements the persistence backend (C3): a single
// interface with two interchangeable implementations, a single-node
// in-memory store and a distributed stand-in that fans out
// watch-for-change notifications across a publish/subscribe channel.
package store

import (
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// ChangeKind identifies what kind of entity changed, delivered to Watch
// subscribers.
type ChangeKind string

const (
	ChangeTask     ChangeKind = "task"
	ChangeWorkflow ChangeKind = "workflow"
)

// Change is a watch-for-change notification. The distributed
// implementation multiplexes these across nodes via its publish/
// subscribe channel, per §4.3.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Store is the persistence contract: put/get/list for tasks and
// workflows, append-only results, queue state snapshot save/load, event
// insert/delete (satisfied via the embedded scheduler.Store so a Store
// can be handed directly to scheduler.New), and watch-for-change
// notifications. Writes are atomic per entity; CompleteTask additionally
// provides the cross-entity atomicity §4.3 requires for "set task to
// completed AND store its result".
type Store interface {
	scheduler.Store

	PutWorkflow(wf *task.Workflow) error
	GetWorkflow(id string) (*task.Workflow, error)
	ListWorkflows() ([]*task.Workflow, error)
	DeleteWorkflow(id string) error

	PutTask(t *task.Task) error
	GetTask(id string) (*task.Task, error)
	ListTasks(workflowID string) ([]*task.Task, error)

	// CompleteTask atomically transitions a task to its terminal status,
	// stores its result (if any), and records the result in the owning
	// workflow's result map — the compare-and-set-equivalent atomic
	// cross-entity update §4.3 calls for.
	CompleteTask(t *task.Task, result *task.Result) error

	// SaveQueueSnapshot mirrors the in-memory priority queue (C4) so a
	// restart can rebuild it without losing queued tasks.
	SaveQueueSnapshot(taskIDs []string) error
	LoadQueueSnapshot() ([]string, error)

	// Watch subscribes to change notifications. The returned cancel
	// function unsubscribes and may be called at most once.
	Watch() (<-chan Change, func())
}
