package coordinator

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/orchestrator/dependency"
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// handleCompletion is invoked when a provider returns a successful
// result. It persists the result, unblocks dependents, and re-triggers
// assignment, per §4.8 "Completion".
func (c *Coordinator) handleCompletion(ctx context.Context, t *task.Task, resultMap map[string]any) {
	c.cancelTimeout(t)

	t.SetResult(resultMap)
	if err := t.Transition(task.StatusCompleted); err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}
	result := *t.Result

	wf, err := c.store.GetWorkflow(t.WorkflowID)
	if err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}

	if err := c.store.CompleteTask(t, &result); err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}

	c.mu.Lock()
	wf.RefreshCounts()
	graph := c.graphs[wf.ID]
	c.mu.Unlock()

	c.emit(ctx, EventTaskCompleted, wf.ID, t.ID, nil)
	if c.metrics != nil {
		c.metrics.TasksCompletedTotal.WithLabelValues(t.Protocol, t.Method).Inc()
	}

	c.queue.MarkCompleted(t.ID)
	c.enqueueNewlyReady(graph, wf, t.ID)

	c.assignAvailableTasks(ctx)

	c.mu.Lock()
	if wf.AllTasksTerminal() {
		c.finalizeLocked(ctx, wf)
	}
	c.mu.Unlock()
}

// handleTaskFailure classifies and routes one failed attempt: retryable
// attempts under the limit are rescheduled via C7; everything else fails
// the task permanently and applies the workflow's error policy, per
// §4.8 "Failure".
func (c *Coordinator) handleTaskFailure(ctx context.Context, t *task.Task, kind task.ErrorKind, message, providerID string, retryable bool) {
	c.cancelTimeout(t)
	t.RecordFailure(kind, message, providerID)

	if retryable && t.Attempt < t.Retry.MaxAttempts {
		c.scheduleRetry(ctx, t)
		return
	}

	c.failPermanently(ctx, t)
}

func (c *Coordinator) scheduleRetry(ctx context.Context, t *task.Task) {
	delay := scheduler.ComputeRetryDelay(t.Retry, t.Attempt)
	if err := t.Transition(task.StatusRetryScheduled); err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}
	_ = c.store.PutTask(t)

	_ = c.scheduler.Schedule(time.Now().Add(delay), scheduler.KindRetry, map[string]any{
		"task_id":     t.ID,
		"workflow_id": t.WorkflowID,
	}, retryKey(t.ID, t.Attempt))

	c.emit(ctx, EventTaskRetryScheduled, t.WorkflowID, t.ID, map[string]any{"delay_ms": delay.Milliseconds(), "attempt": t.Attempt})
	if c.metrics != nil {
		c.metrics.TasksRetriedTotal.WithLabelValues(t.Protocol, t.Method).Inc()
	}
}

// failPermanently marks t failed, unblocks its dependents (continue-on-
// error may let them run and fail their own way via UnsatisfiedReference),
// and applies fail-fast cancellation if the workflow demands it.
func (c *Coordinator) failPermanently(ctx context.Context, t *task.Task) {
	if err := t.Transition(task.StatusFailed); err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}
	_ = c.store.PutTask(t)
	c.emit(ctx, EventTaskFailed, t.WorkflowID, t.ID, nil)
	if c.metrics != nil {
		kind := task.ErrorKindInternal
		if t.Errors != nil {
			if records := t.Errors.Records(); len(records) > 0 {
				kind = records[len(records)-1].Kind
			}
		}
		c.metrics.TasksFailedTotal.WithLabelValues(string(kind)).Inc()
	}

	wf, err := c.store.GetWorkflow(t.WorkflowID)
	if err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}

	c.mu.Lock()
	graph := c.graphs[wf.ID]
	wf.RefreshCounts()
	c.mu.Unlock()

	// Unblock dependents regardless of error policy: under fail-fast
	// they are about to be swept into cancellation anyway; under
	// continue-on-error this is what lets them run (and themselves fail
	// with UnsatisfiedReference if they reference the failed result).
	c.queue.MarkCompleted(t.ID)
	c.enqueueNewlyReady(graph, wf, t.ID)

	c.mu.Lock()
	if wf.ErrorPolicy == task.ErrorPolicyFailFast {
		c.cancelRemainingLocked(ctx, wf)
	}
	c.mu.Unlock()

	c.assignAvailableTasks(ctx)

	c.mu.Lock()
	if wf.AllTasksTerminal() {
		c.finalizeLocked(ctx, wf)
	}
	c.mu.Unlock()
}

// enqueueNewlyReady asks graph which of completedID's dependents are now
// fully satisfied and enqueues the ones still pending. "Satisfied" here
// means terminal, not just successful: a permanently-failed dependency
// still unblocks its dependents per §4.8 continue-on-error, which then
// run and fail themselves with substitution.ErrUnsatisfiedReference if
// they reference the failed task's result.
func (c *Coordinator) enqueueNewlyReady(graph *dependency.Graph, wf *task.Workflow, completedID string) {
	if graph == nil {
		return
	}

	completed := make(map[string]bool, len(wf.Tasks))
	for _, t := range wf.Tasks {
		if t.Status == task.StatusCompleted || t.Status == task.StatusFailed {
			completed[t.ID] = true
		}
	}

	alreadyReady := func(id string) bool {
		dep := wf.TaskByID(id)
		return dep == nil || dep.Status != task.StatusPending
	}

	for _, id := range graph.NewlyReady(completedID, completed, alreadyReady) {
		dep := wf.TaskByID(id)
		if dep == nil {
			continue
		}
		c.enqueueReady(dep)
	}
}
