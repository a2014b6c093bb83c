// Package task defines the workflow/task data model and its lifecycle:
// Task, Workflow, the status state machine, retry configuration, and the
// per-task error history. Every other component in this module (protocol,
// provider, queue, dependency, substitution, scheduler, store, coordinator)
// operates on these types rather than redefining them.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is one unit of work within a workflow: a (protocol, method, params)
// triple with status, lineage, and retry state.
type Task struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Name       string         `json:"name,omitempty"`
	Protocol   string         `json:"protocol"`
	Method     string         `json:"method"`
	Params     map[string]any `json:"params"`
	Priority   Priority       `json:"priority"`
	DependsOn  []string       `json:"depends_on,omitempty"`
	Timeout    time.Duration  `json:"timeout,omitempty"`
	Retry      RetryConfig    `json:"retry"`

	Status Status `json:"status"`
	Result *Result `json:"result,omitempty"`
	Errors *ErrorHistory `json:"-"`

	Attempt int `json:"attempt"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewTask constructs a pending task with a fresh time-ordered id, matching
// the orchestrate/messaging convention of uuid.Must(uuid.NewV7()).
func NewTask(workflowID, protocol, method string, params map[string]any) *Task {
	return &Task{
		ID:         uuid.Must(uuid.NewV7()).String(),
		WorkflowID: workflowID,
		Protocol:   protocol,
		Method:     method,
		Params:     params,
		Priority:   PriorityNormal,
		Retry:      DefaultRetryConfig(),
		Status:     StatusPending,
		Errors:     NewErrorHistory(0),
		CreatedAt:  time.Now(),
	}
}

// ProtocolKey returns the method-table lookup key "name/version" used by
// the protocol registry, derived from Task.Protocol which is already
// stored in that form.
func (t *Task) ProtocolKey() string {
	return t.Protocol
}

// Transition moves the task to next if the edge is legal per the status
// state machine, stamping Started/Completed as appropriate. It returns
// ErrInvalidTransition without modifying the task on an illegal edge.
func (t *Task) Transition(next Status) error {
	if !CanTransition(t.Status, next) {
		return ErrInvalidTransition
	}
	t.Status = next
	switch next {
	case StatusRunning:
		if t.StartedAt.IsZero() {
			t.StartedAt = time.Now()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		t.CompletedAt = time.Now()
	}
	return nil
}

// InQueue reports whether the task's status implies queue membership,
// used by components asserting the "queued at most once" invariant.
func (t *Task) InQueue() bool {
	return t.Status == StatusQueued
}

// RecordFailure appends an attempt to the task's bounded error history.
func (t *Task) RecordFailure(kind ErrorKind, message, providerID string) {
	if t.Errors == nil {
		t.Errors = NewErrorHistory(0)
	}
	t.Errors.Append(ErrorRecord{
		Kind:       kind,
		Message:    message,
		ProviderID: providerID,
		Timestamp:  time.Now(),
		Attempt:    t.Attempt,
	})
}

// SetResult stores a successful result on the task. It does not transition
// status; callers call Transition(StatusCompleted) separately so the
// coordinator can persist the two changes atomically.
func (t *Task) SetResult(value map[string]any) {
	t.Result = &Result{
		TaskID:    t.ID,
		Value:     value,
		Completed: time.Now(),
	}
}

// Clone returns a deep-enough copy of the task for safe handoff across
// goroutines (persistence writers, observer payloads). Params is
// shallow-copied at the top level; callers must not mutate nested
// structures in place once a task has been dispatched.
func (t *Task) Clone() *Task {
	clone := *t
	if t.Params != nil {
		clone.Params = make(map[string]any, len(t.Params))
		for k, v := range t.Params {
			clone.Params[k] = v
		}
	}
	if t.DependsOn != nil {
		clone.DependsOn = append([]string(nil), t.DependsOn...)
	}
	return &clone
}
