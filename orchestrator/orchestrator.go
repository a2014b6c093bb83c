// Package orchestrator is the top-level facade: it wires the protocol
// registry (C1), provider registry (C2), persistence backend (C3), task
// queue (C4), event scheduler (C7), and execution coordinator (C8) into
// one running instance, the way kernel.New composes a Kernel from its
// config-driven subsystems.
//
// The scheduler and coordinator have a mutual dependency (the scheduler
// needs a callback bound to the coordinator; the coordinator needs the
// already-constructed scheduler), resolved here with the forward-
// reference idiom documented on coordinator.New.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/orchestrator/coordinator"
	"github.com/tailored-agentic-units/orchestrator/metrics"
	"github.com/tailored-agentic-units/orchestrator/observability"
	"github.com/tailored-agentic-units/orchestrator/protocol"
	"github.com/tailored-agentic-units/orchestrator/provider"
	"github.com/tailored-agentic-units/orchestrator/queue"
	"github.com/tailored-agentic-units/orchestrator/scheduler"
	"github.com/tailored-agentic-units/orchestrator/store"
	"github.com/tailored-agentic-units/orchestrator/task"
)

// Option configures an Orchestrator after config-driven initialization.
type Option func(*Orchestrator)

// WithStore overrides the config-created persistence backend (tests, or
// a caller supplying a distributed store.NotifyStore instead of the
// in-memory default).
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithObserver overrides the config-resolved observer for every
// subsystem.
func WithObserver(ob observability.Observer) Option {
	return func(o *Orchestrator) { o.observer = ob }
}

// Orchestrator is the running instance: every subsystem plus the
// scheduler loop that drives retries, timeouts, dead-letters, and health
// probes.
type Orchestrator struct {
	protocols   *protocol.Registry
	providers   *provider.Registry
	store       store.Store
	queue       *queue.Queue
	scheduler   *scheduler.Scheduler
	coordinator *coordinator.Coordinator
	observer    observability.Observer
	metrics     *metrics.Metrics
}

// New creates an Orchestrator from configuration. Functional options are
// applied first and can replace the persistence backend and the
// observer; every other subsystem is built from cfg.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	observer := observability.Observer(observability.NewSlogObserver(slog.Default()))
	if cfg.ObserverName != "" {
		resolved, err := observability.GetObserver(cfg.ObserverName)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: resolve observer %q: %w", cfg.ObserverName, err)
		}
		observer = resolved
	}

	o := &Orchestrator{observer: observer}
	for _, opt := range opts {
		opt(o)
	}
	if o.observer != nil {
		observer = o.observer
	}

	if o.store == nil {
		o.store = store.NewMemoryStore()
	}

	o.protocols = protocol.NewRegistry()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	o.metrics = m

	providerOpts := []provider.Option{}
	if m != nil {
		providerOpts = append(providerOpts, provider.WithMetrics(m))
	}
	o.providers = provider.NewRegistry(observer, providerOpts...)

	scanLimit := cfg.QueueScanLimit
	if scanLimit <= 0 {
		scanLimit = queue.DefaultScanLimit
	}
	o.queue = queue.NewWithScanLimit(scanLimit)

	var coord *coordinator.Coordinator
	sched := scheduler.New(o.store, func(ctx context.Context, ev scheduler.Event) {
		coord.HandleScheduledEvent(ctx, ev)
	}, observer)
	o.scheduler = sched

	coordOpts := []coordinator.Option{
		coordinator.WithObserver(observer),
		coordinator.WithDeadLetterTimeout(cfg.Coordinator.DeadLetterTimeout),
	}
	if m != nil {
		coordOpts = append(coordOpts, coordinator.WithMetrics(m))
	}
	coord = coordinator.New(o.protocols, o.providers, o.store, o.queue, sched, coordOpts...)
	o.coordinator = coord

	return o, nil
}

// Start loads any persisted scheduler events (restart durability) and
// arms the timer for the earliest one; events that fire afterwards are
// delivered with ctx.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.scheduler.Start(ctx)
}

// Stop halts the scheduler's timer. Already-dispatched provider calls
// are not interrupted.
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()
}

// RegisterProtocol adds a protocol specification, delegating to the
// protocol registry (C1).
func (o *Orchestrator) RegisterProtocol(spec protocol.Spec) error {
	return o.protocols.Register(spec)
}

// RegisterProvider connects a provider, delegating to the provider
// registry (C2) and arming its first health probe.
func (o *Orchestrator) RegisterProvider(ctx context.Context, p provider.Provider) error {
	if err := o.providers.Register(p); err != nil {
		return err
	}
	o.coordinator.OnProviderRegistered(ctx, p.ID())
	return nil
}

// SubmitWorkflow hands wf to the execution coordinator (C8).
func (o *Orchestrator) SubmitWorkflow(ctx context.Context, wf *task.Workflow) error {
	return o.coordinator.SubmitWorkflow(ctx, wf)
}

// CancelWorkflow cancels a running workflow via the coordinator.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID string) error {
	return o.coordinator.CancelWorkflow(ctx, workflowID)
}

// Store returns the persistence backend, for callers that need direct
// read access (status queries, dashboards).
func (o *Orchestrator) Store() store.Store {
	return o.store
}

// Metrics returns the Prometheus collectors, or nil if
// Config.MetricsEnabled was false.
func (o *Orchestrator) Metrics() *metrics.Metrics {
	return o.metrics
}
