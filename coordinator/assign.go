package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/orchestrator/jsonrpc"
	"github.com/tailored-agentic-units/orchestrator/provider"
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/substitution"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// assignAvailableTasks drains ready, provider-compatible tasks off the
// queue and dispatches each to a selected provider, per §4.8
// "Assignment (proactive)". It terminates when the queue holds nothing
// eligible or every capable provider is saturated; a task dequeued but
// momentarily unassignable (NoProviderAvailable) is pushed back onto the
// queue rather than failed — it is retried implicitly the next time this
// function runs. Called on workflow submission, task completion, task
// failure, provider registration, and provider health recovery, never
// from a background loop (§9 "no polling, everywhere").
func (c *Coordinator) assignAvailableTasks(ctx context.Context) {
	capable := func(protocol, method string) bool {
		return c.providers.AnyEligible(protocol, method)
	}

	attempted := make(map[string]bool)
	for {
		t, ok := c.queue.TryDequeueReady(capable)
		if !ok {
			return
		}
		if attempted[t.ID] {
			// Cycled back to a task already tried this round: nothing
			// further is assignable right now.
			c.queue.Enqueue(t, nil)
			return
		}
		attempted[t.ID] = true

		prov, err := c.providers.Select(t.Protocol, t.Method)
		if err != nil {
			c.queue.Enqueue(t, nil)
			continue
		}

		c.dispatchTask(ctx, t, prov)
	}
}

// dispatchTask moves t from queued to assigned, substitutes its
// parameters against the workflow's completed results, and hands it to
// the provider. The provider call itself runs in its own goroutine so
// that a slow provider never blocks further assignment — tasks across
// providers run concurrently per §5.
func (c *Coordinator) dispatchTask(ctx context.Context, t *task.Task, prov provider.Provider) {
	c.cancelDeadLetter(t)

	if err := t.Transition(task.StatusAssigned); err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}
	_ = c.store.PutTask(t)
	c.emit(ctx, EventTaskAssigned, t.WorkflowID, t.ID, map[string]any{"provider_id": prov.ID()})

	wf, err := c.store.GetWorkflow(t.WorkflowID)
	if err != nil {
		c.emit(ctx, EventError, t.WorkflowID, t.ID, map[string]any{"error": err.Error()})
		return
	}

	c.mu.Lock()
	results := make(map[string]task.Result, len(wf.Results))
	for id, r := range wf.Results {
		results[id] = r
	}
	c.mu.Unlock()

	params, err := substitution.Apply(t, results)
	if err != nil {
		_ = t.Transition(task.StatusRunning)
		kind := task.ErrorKindParameterReference
		if isUnsatisfiedReference(err) {
			kind = task.ErrorKindUnsatisfiedReference
		}
		c.handleTaskFailure(ctx, t, kind, err.Error(), "", false)
		return
	}

	req, err := jsonrpc.NewRequest(newDispatchID(), t.Method, params)
	if err != nil {
		_ = t.Transition(task.StatusRunning)
		c.handleTaskFailure(ctx, t, task.ErrorKindInternal, err.Error(), "", false)
		return
	}

	_ = t.Transition(task.StatusRunning)
	t.Attempt++
	_ = c.store.PutTask(t)
	c.emit(ctx, EventTaskDispatched, t.WorkflowID, t.ID, map[string]any{"provider_id": prov.ID(), "attempt": t.Attempt})
	if c.metrics != nil {
		c.metrics.TasksDispatchedTotal.WithLabelValues(t.Protocol, t.Method).Inc()
	}

	if t.Timeout > 0 {
		_ = c.scheduler.Schedule(time.Now().Add(t.Timeout), scheduler.KindTimeout, map[string]any{
			"task_id":     t.ID,
			"workflow_id": t.WorkflowID,
			"provider_id": prov.ID(),
		}, timeoutKey(t.ID, t.Attempt))
	}

	go c.runDispatch(ctx, t, prov, req)
}

func isUnsatisfiedReference(err error) bool {
	return errors.Is(err, substitution.ErrUnsatisfiedReference)
}

// runDispatch performs the actual provider call and routes the outcome
// to completion or failure handling. It runs on its own goroutine,
// started by dispatchTask.
func (c *Coordinator) runDispatch(ctx context.Context, t *task.Task, prov provider.Provider, req *jsonrpc.Request) {
	resp, err := c.providers.Dispatch(ctx, prov.ID(), req)
	if err != nil {
		c.handleTaskFailure(ctx, t, task.ErrorKindProviderTransport, err.Error(), prov.ID(), true)
		return
	}

	if resp.Error != nil {
		c.handleTaskFailure(ctx, t, task.ErrorKindJSONRPCMethod, resp.Error.Error(), prov.ID(), resp.Error.Retryable())
		return
	}

	resultMap, err := resp.ResultMap()
	if err != nil {
		c.handleTaskFailure(ctx, t, task.ErrorKindInternal, err.Error(), prov.ID(), false)
		return
	}

	c.handleCompletion(ctx, t, resultMap)
}
