package coordinator

import (
	"context"

	"github.com/tailored-agentic-units/orchestrator/provider"
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// HandleScheduledEvent is the single entry point the scheduler (C7)
// calls when one of its armed events fires. It is the bridge that lets
// C7 stay ignorant of coordinator internals: the coordinator supplies
// this method as C7's OnFire callback at construction time (see the
// package doc comment for the forward-reference wiring this requires).
func (c *Coordinator) HandleScheduledEvent(ctx context.Context, ev scheduler.Event) {
	switch ev.Kind {
	case scheduler.KindRetry:
		c.onRetryFired(ctx, ev)
	case scheduler.KindTimeout:
		c.onTimeoutFired(ctx, ev)
	case scheduler.KindDeadLetter:
		c.onDeadLetterFired(ctx, ev)
	case scheduler.KindProbe:
		c.onProbeFired(ctx, ev)
	}
}

func (c *Coordinator) onRetryFired(ctx context.Context, ev scheduler.Event) {
	taskID, _ := ev.Payload["task_id"].(string)
	t, err := c.store.GetTask(taskID)
	if err != nil || t.Status != task.StatusRetryScheduled {
		return
	}
	c.enqueueReady(t)
	c.assignAvailableTasks(ctx)
}

func (c *Coordinator) onTimeoutFired(ctx context.Context, ev scheduler.Event) {
	taskID, _ := ev.Payload["task_id"].(string)
	providerID, _ := ev.Payload["provider_id"].(string)
	t, err := c.store.GetTask(taskID)
	if err != nil || t.Status != task.StatusRunning {
		return
	}
	c.emit(ctx, EventTaskTimeout, t.WorkflowID, t.ID, map[string]any{"provider_id": providerID})
	c.handleTaskFailure(ctx, t, task.ErrorKindProviderTimeout, "provider did not respond within the task timeout", providerID, true)
}

// onDeadLetterFired fails a task that has sat queued, unassignable to
// any provider, for longer than the dead-letter timeout (§7). This is
// the one path that moves a task directly from queued to failed,
// reflected in task.Status's extended transition table.
func (c *Coordinator) onDeadLetterFired(ctx context.Context, ev scheduler.Event) {
	taskID, _ := ev.Payload["task_id"].(string)
	t, err := c.store.GetTask(taskID)
	if err != nil || t.Status != task.StatusQueued {
		return
	}
	_ = c.queue.Remove(t.ID)
	t.RecordFailure(task.ErrorKindNoProviderAvailable, "no eligible provider found the task before the dead-letter timeout elapsed", "")
	c.failPermanently(ctx, t)
}

// onProbeFired runs a health probe for the provider named in ev,
// reschedules the next probe at the (possibly adapted) interval, and
// re-triggers assignment if the probe brought the provider back from
// unavailable.
func (c *Coordinator) onProbeFired(ctx context.Context, ev scheduler.Event) {
	providerID, _ := ev.Payload["provider_id"].(string)

	before, err := c.providers.Health(providerID)
	if err != nil {
		return
	}

	after, err := c.providers.Probe(ctx, providerID)
	if err != nil {
		return
	}

	c.armProbe(providerID)

	if before == provider.HealthUnavailable && after != provider.HealthUnavailable {
		c.emit(ctx, EventProviderRecovered, "", "", map[string]any{"provider_id": providerID})
		c.assignAvailableTasks(ctx)
	}
}
