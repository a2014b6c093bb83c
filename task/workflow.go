package task

import (
	"time"

	"github.com/google/uuid"
)

// Counts aggregates task status for a workflow. RefreshCounts recomputes
// it by scanning the tasks; the coordinator calls that after task
// completions, failures and cancellations, not on every transition.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Workflow is a DAG of tasks sharing a result namespace and error policy.
// Tasks is the ordered task set as declared in the workflow description;
// dependency edges live on the individual Task.DependsOn lists.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Tasks          []*Task        `json:"tasks"`
	ParallelismCap int            `json:"parallelism_cap,omitempty"`
	ErrorPolicy    ErrorPolicy    `json:"error_policy"`
	Status         WorkflowStatus `json:"status"`
	Counts         Counts         `json:"counts"`
	Results        map[string]Result `json:"results"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewWorkflow constructs a pending workflow with a fresh time-ordered id.
// Tasks' WorkflowID fields are stamped to wf.ID.
func NewWorkflow(name string, errorPolicy ErrorPolicy, tasks []*Task) *Workflow {
	if errorPolicy == "" {
		errorPolicy = ErrorPolicyFailFast
	}
	wf := &Workflow{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        name,
		Tasks:       tasks,
		ErrorPolicy: errorPolicy,
		Status:      WorkflowPending,
		Results:     make(map[string]Result),
		CreatedAt:   time.Now(),
	}
	for _, t := range tasks {
		t.WorkflowID = wf.ID
	}
	wf.Counts = wf.countTasks()
	return wf
}

func (wf *Workflow) countTasks() Counts {
	var c Counts
	c.Total = len(wf.Tasks)
	for _, t := range wf.Tasks {
		switch t.Status {
		case StatusPending, StatusRetryScheduled, StatusAssigned:
			c.Pending++
		case StatusQueued:
			c.Queued++
		case StatusRunning:
			c.Running++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		case StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}

// RefreshCounts recomputes Counts from the current task statuses. The
// coordinator calls it while holding its own mutex.
func (wf *Workflow) RefreshCounts() {
	wf.Counts = wf.countTasks()
}

// TaskByID returns the task with the given id, or nil if not present.
func (wf *Workflow) TaskByID(id string) *Task {
	for _, t := range wf.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// AllTasksTerminal reports whether every task in the workflow has reached a
// terminal status, per the §3 invariant "a workflow is completed iff
// every task is in a terminal state consistent with the error policy".
// It does not itself decide WHAT terminal workflow status applies; see
// ResolveStatus.
func (wf *Workflow) AllTasksTerminal() bool {
	for _, t := range wf.Tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// ResolveStatus computes the workflow-level status implied by its current
// task statuses, per §3/§8 invariant 6. Call only once AllTasksTerminal
// is true (or the workflow has zero tasks, which is immediately
// completed per §8 boundary cases).
func (wf *Workflow) ResolveStatus() WorkflowStatus {
	if len(wf.Tasks) == 0 {
		return WorkflowCompleted
	}
	anyFailed := false
	anyCancelled := false
	for _, t := range wf.Tasks {
		switch t.Status {
		case StatusFailed:
			anyFailed = true
		case StatusCancelled:
			anyCancelled = true
		}
	}
	switch {
	case anyFailed:
		return WorkflowFailed
	case anyCancelled:
		return WorkflowCancelled
	default:
		return WorkflowCompleted
	}
}

// RecordResult stores a task's result in the workflow's result map.
func (wf *Workflow) RecordResult(taskID string, result Result) {
	if wf.Results == nil {
		wf.Results = make(map[string]Result)
	}
	wf.Results[taskID] = result
}
