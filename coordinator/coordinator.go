// Package coordinator implements the execution coordinator (C8): the
// orchestrator that owns workflow submission, drives task assignment,
// receives completion/failure events, triggers dependency re-evaluation,
// and finalizes workflows. It is the only component that holds all the
// others (C1-C7) as explicit collaborators, following the teacher's
// kernel.Kernel shape scaled from a single-agent loop to a multi-task,
// multi-provider dispatch loop.
//
// The scheduler (C7) is constructed by the caller with its OnFire bound
// to (*Coordinator).HandleScheduledEvent before the Coordinator itself
// exists — the usual forward-reference idiom for this kind of mutual
// wiring:
//
//	var coord *coordinator.Coordinator
//	sched := scheduler.New(store, func(ctx context.Context, ev scheduler.Event) {
//		coord.HandleScheduledEvent(ctx, ev)
//	}, observer)
//	coord = coordinator.New(protocols, providers, store, queue, sched, opts...)
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/orchestrator/dependency"
	"github.com/tailored-agentic-units/orchestrator/metrics"
	"github.com/tailored-agentic-units/orchestrator/observability"
	"github.com/tailored-agentic-units/orchestrator/protocol"
	"github.com/tailored-agentic-units/orchestrator/provider"
	"github.com/tailored-agentic-units/orchestrator/queue"
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/store"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// Option configures a Coordinator after construction.
type Option func(*Coordinator)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithDeadLetterTimeout overrides the default 10 minute dead-letter
// timeout for tasks that never find an eligible provider.
func WithDeadLetterTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.deadLetterTimeout = d }
}

// WithMetrics attaches m so workflow/task lifecycle transitions are
// recorded as Prometheus counters and gauges. Omitting this option
// leaves metrics recording a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator is the C8 execution coordinator.
type Coordinator struct {
	protocols *protocol.Registry
	providers *provider.Registry
	store     store.Store
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	observer  observability.Observer
	metrics   *metrics.Metrics

	deadLetterTimeout time.Duration

	// mu guards the in-process bookkeeping below. The queue, provider
	// registry, and scheduler each already serialize their own state
	// behind their own mutex; this one covers the coordinator's own
	// cross-task workflow bookkeeping (idempotency index, cached
	// dependency graphs, and mutation of a *task.Workflow's Counts/
	// Results/Status), matching §5's "single short-held mutex" policy
	// applied to a new piece of shared state rather than reusing one of
	// the subsystem locks.
	mu          sync.Mutex
	idempotency map[string]string         // idempotency key -> workflow id
	graphs      map[string]*dependency.Graph
}

// New wires the coordinator to its collaborators. protocols, providers,
// st, q, and sched must already be constructed (they are process-wide
// singletons passed in explicitly, per §9 "Global registries").
func New(protocols *protocol.Registry, providers *provider.Registry, st store.Store, q *queue.Queue, sched *scheduler.Scheduler, opts ...Option) *Coordinator {
	c := &Coordinator{
		protocols:         protocols,
		providers:         providers,
		store:             st,
		queue:             q,
		scheduler:         sched,
		observer:          observability.NoOpObserver{},
		deadLetterTimeout: DefaultConfig().DeadLetterTimeout,
		idempotency:       make(map[string]string),
		graphs:            make(map[string]*dependency.Graph),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitWorkflow validates wf against the protocol registry and its own
// dependency graph, persists it, enqueues its initial ready set, and
// kicks off assignment. A workflow carrying an already-seen idempotency
// key is rejected with ErrDuplicateSubmission rather than re-executed.
func (c *Coordinator) SubmitWorkflow(ctx context.Context, wf *task.Workflow) error {
	if wf.IdempotencyKey != "" {
		c.mu.Lock()
		existing, dup := c.idempotency[wf.IdempotencyKey]
		c.mu.Unlock()
		if dup {
			return fmt.Errorf("%w: key %q already submitted as workflow %s", ErrDuplicateSubmission, wf.IdempotencyKey, existing)
		}
	}

	if errs := c.validateWorkflow(wf); len(errs) > 0 {
		return ValidationErrors(errs)
	}

	graph := dependency.Build(wf.Tasks)

	if err := c.store.PutWorkflow(wf); err != nil {
		return fmt.Errorf("coordinator: persist workflow %s: %w", wf.ID, err)
	}
	for _, t := range wf.Tasks {
		if err := c.store.PutTask(t); err != nil {
			return fmt.Errorf("coordinator: persist task %s: %w", t.ID, err)
		}
	}

	c.mu.Lock()
	c.graphs[wf.ID] = graph
	if wf.IdempotencyKey != "" {
		c.idempotency[wf.IdempotencyKey] = wf.ID
	}
	c.mu.Unlock()

	c.emit(ctx, EventWorkflowSubmitted, wf.ID, "", map[string]any{"task_count": len(wf.Tasks)})
	if c.metrics != nil {
		c.metrics.WorkflowsSubmittedTotal.Inc()
	}

	if len(wf.Tasks) == 0 {
		wf.Status = task.WorkflowCompleted
		wf.CompletedAt = time.Now()
		_ = c.store.PutWorkflow(wf)
		c.emit(ctx, EventWorkflowCompleted, wf.ID, "", nil)
		return nil
	}

	for _, id := range graph.InitialReadySet() {
		t := wf.TaskByID(id)
		c.enqueueReady(t)
	}

	wf.Status = task.WorkflowRunning
	_ = c.store.PutWorkflow(wf)
	c.emit(ctx, EventWorkflowRunning, wf.ID, "", nil)

	c.assignAvailableTasks(ctx)
	return nil
}

// validateWorkflow collects every structural/schema problem with wf
// rather than stopping at the first, per the protocol registry's own
// aggregate-errors convention.
func (c *Coordinator) validateWorkflow(wf *task.Workflow) []error {
	var errs []error

	seen := make(map[string]bool, len(wf.Tasks))
	for _, t := range wf.Tasks {
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", task.ErrDuplicateTaskID, t.ID))
		}
		seen[t.ID] = true
		errs = append(errs, c.protocols.ValidateTask(t)...)
	}

	for _, t := range wf.Tasks {
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				errs = append(errs, fmt.Errorf("%w: task %s depends on %s", task.ErrUnknownDependency, t.ID, dep))
			}
		}
	}

	graph := dependency.Build(wf.Tasks)
	for _, id := range graph.SelfDependencies() {
		errs = append(errs, fmt.Errorf("%w: %s", task.ErrSelfDependency, id))
	}
	if cycle := graph.DetectCycle(); cycle != nil {
		errs = append(errs, &task.CycleError{Path: cycle})
	}
	for _, t := range wf.Tasks {
		errs = append(errs, graph.VerifyReferences(t)...)
	}

	return errs
}

// CancelWorkflow marks wf cancelled, removing its queued tasks and
// cancelling any pending scheduler events for them; running tasks get a
// best-effort signal only (§4.8 "Cancellation").
func (c *Coordinator) CancelWorkflow(ctx context.Context, workflowID string) error {
	wf, err := c.store.GetWorkflow(workflowID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if wf.Status.Terminal() {
		return nil
	}

	c.cancelRemainingLocked(ctx, wf)
	wf.Status = task.WorkflowCancelled
	wf.CompletedAt = time.Now()
	_ = c.store.PutWorkflow(wf)
	c.emit(ctx, EventWorkflowCancelled, wf.ID, "", nil)
	return nil
}

// OnProviderRegistered arms the provider's first health probe and
// re-triggers assignment, since a newly-registered provider may satisfy
// tasks that have been sitting queued with NoProviderAvailable.
func (c *Coordinator) OnProviderRegistered(ctx context.Context, providerID string) {
	c.armProbe(providerID)
	c.assignAvailableTasks(ctx)
}

// enqueueReady transitions t (pending or retry-scheduled) to queued,
// persists it, arms its dead-letter timer, and pushes it onto the
// queue. Used for a workflow's initial ready set, newly-ready
// dependents, and retry-scheduled tasks whose retry event fired.
func (c *Coordinator) enqueueReady(t *task.Task) {
	if err := t.Transition(task.StatusQueued); err != nil {
		return
	}
	_ = c.store.PutTask(t)
	c.scheduleDeadLetter(t)
	c.queue.Enqueue(t, nil)
	if c.metrics != nil {
		c.metrics.QueueDepth.WithLabelValues("total").Set(float64(c.queue.Size()))
		c.metrics.SchedulerHeapSize.Set(float64(c.scheduler.Len()))
	}
}

func (c *Coordinator) scheduleDeadLetter(t *task.Task) {
	_ = c.scheduler.Schedule(
		time.Now().Add(c.deadLetterTimeout),
		scheduler.KindDeadLetter,
		map[string]any{"task_id": t.ID, "workflow_id": t.WorkflowID},
		deadLetterKey(t.ID),
	)
}

func (c *Coordinator) cancelDeadLetter(t *task.Task) {
	_ = c.scheduler.Cancel(deadLetterKey(t.ID))
}

func (c *Coordinator) cancelTimeout(t *task.Task) {
	_ = c.scheduler.Cancel(timeoutKey(t.ID, t.Attempt))
}

func (c *Coordinator) cancelRetry(t *task.Task) {
	_ = c.scheduler.Cancel(retryKey(t.ID, t.Attempt))
}

func (c *Coordinator) armProbe(providerID string) {
	interval, err := c.providers.NextProbeInterval(providerID)
	if err != nil {
		return
	}
	_ = c.scheduler.Schedule(
		time.Now().Add(interval),
		scheduler.KindProbe,
		map[string]any{"provider_id": providerID},
		probeKey(providerID),
	)
}

func deadLetterKey(taskID string) string        { return fmt.Sprintf("deadletter:%s", taskID) }
func timeoutKey(taskID string, attempt int) string { return fmt.Sprintf("timeout:%s:%d", taskID, attempt) }
func retryKey(taskID string, attempt int) string   { return fmt.Sprintf("retry:%s:%d", taskID, attempt) }
func probeKey(providerID string) string         { return fmt.Sprintf("probe:%s", providerID) }

// cancelRemainingLocked cancels every non-terminal task in wf: removed
// from the queue, any scheduler events cancelled, transitioned to
// cancelled. Caller holds c.mu.
func (c *Coordinator) cancelRemainingLocked(ctx context.Context, wf *task.Workflow) {
	for _, t := range wf.Tasks {
		if t.Status.Terminal() {
			continue
		}
		_ = c.queue.Remove(t.ID)
		c.cancelDeadLetter(t)
		c.cancelRetry(t)
		c.cancelTimeout(t)

		if err := t.Transition(task.StatusCancelled); err != nil {
			continue
		}
		_ = c.store.PutTask(t)
		c.emit(ctx, EventTaskCancelled, wf.ID, t.ID, nil)
	}
	wf.RefreshCounts()
}

// finalizeLocked resolves and persists wf's terminal status exactly
// once, guarded by c.mu rather than a separate per-workflow
// compare-and-set primitive, per §5 "workflow finalization happens
// exactly once per workflow".
func (c *Coordinator) finalizeLocked(ctx context.Context, wf *task.Workflow) {
	if wf.Status.Terminal() {
		return
	}
	wf.Status = wf.ResolveStatus()
	wf.CompletedAt = time.Now()
	_ = c.store.PutWorkflow(wf)

	evType := EventWorkflowCompleted
	switch wf.Status {
	case task.WorkflowFailed:
		evType = EventWorkflowFailed
	case task.WorkflowCancelled:
		evType = EventWorkflowCancelled
	}
	c.emit(ctx, evType, wf.ID, "", nil)
	if c.metrics != nil {
		c.metrics.WorkflowsCompletedTotal.WithLabelValues(string(wf.Status)).Inc()
	}
}

func newDispatchID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (c *Coordinator) emit(ctx context.Context, eventType observability.EventType, workflowID, taskID string, extra map[string]any) {
	data := map[string]any{"workflow_id": workflowID}
	if taskID != "" {
		data["task_id"] = taskID
	}
	for k, v := range extra {
		data[k] = v
	}
	c.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "coordinator.Coordinator",
		Data:      data,
	})
}
