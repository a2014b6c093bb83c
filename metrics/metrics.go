// Package metrics exposes the orchestrator's runtime counters and
// gauges as Prometheus collectors, generalizing the teacher's
// orchestrate/hub.Metrics (atomic counters plus a Snapshot struct) from
// a handful of hub-local counts to the full set of queue, provider, and
// scheduler signals a dispatch loop needs to be observable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the orchestrator registers. A nil
// *Metrics (zero value obtained without New) is not valid; use New or
// NewWithRegisterer.
type Metrics struct {
	QueueDepth        *prometheus.GaugeVec
	SchedulerHeapSize prometheus.Gauge

	ProviderInFlight   *prometheus.GaugeVec
	ProviderHealth     *prometheus.GaugeVec
	ProviderDispatches *prometheus.CounterVec

	TasksDispatchedTotal *prometheus.CounterVec
	TasksCompletedTotal  *prometheus.CounterVec
	TasksFailedTotal     *prometheus.CounterVec
	TasksRetriedTotal    *prometheus.CounterVec

	WorkflowsSubmittedTotal prometheus.Counter
	WorkflowsCompletedTotal *prometheus.CounterVec

	DispatchLatency *prometheus.HistogramVec
}

// New registers every collector against the default Prometheus
// registerer, matching the convention of promhttp.Handler() serving
// prometheus.DefaultGatherer in cmd/orchestratord.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers every collector against reg, letting
// tests use a private prometheus.NewRegistry() instead of mutating the
// process-global default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of tasks currently waiting in the priority queue; the coordinator reports the whole queue under priority=\"total\".",
		}, []string{"priority"}),

		SchedulerHeapSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "scheduler",
			Name:      "heap_size",
			Help:      "Number of scheduled events (retries, timeouts, dead-letters, probes) currently armed.",
		}),

		ProviderInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "provider",
			Name:      "in_flight",
			Help:      "Number of dispatches currently outstanding against a provider.",
		}, []string{"provider_id"}),

		ProviderHealth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orchestrator",
			Subsystem: "provider",
			Name:      "health",
			Help:      "Provider health state: 1=healthy, 0.5=degraded, 0=unavailable.",
		}, []string{"provider_id"}),

		ProviderDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "provider",
			Name:      "dispatches_total",
			Help:      "Total dispatches attempted against a provider, by outcome.",
		}, []string{"provider_id", "outcome"}),

		TasksDispatchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "task",
			Name:      "dispatched_total",
			Help:      "Total tasks handed to a provider, by protocol/method.",
		}, []string{"protocol", "method"}),

		TasksCompletedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "task",
			Name:      "completed_total",
			Help:      "Total tasks that reached the completed status, by protocol/method.",
		}, []string{"protocol", "method"}),

		TasksFailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "task",
			Name:      "failed_total",
			Help:      "Total tasks that reached the failed status, by error kind.",
		}, []string{"kind"}),

		TasksRetriedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "task",
			Name:      "retried_total",
			Help:      "Total retry attempts scheduled.",
		}, []string{"protocol", "method"}),

		WorkflowsSubmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "workflow",
			Name:      "submitted_total",
			Help:      "Total workflows accepted by SubmitWorkflow.",
		}),

		WorkflowsCompletedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "workflow",
			Name:      "completed_total",
			Help:      "Total workflows that reached a terminal status, by status.",
		}, []string{"status"}),

		DispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orchestrator",
			Subsystem: "provider",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent waiting on a provider's Dispatch call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider_id"}),
	}
}

// HealthValue maps a provider.Health string to the gauge value
// ProviderHealth expects, decoupled here (string in, float64 out) so
// this package does not need to import provider and create a cycle.
func HealthValue(health string) float64 {
	switch health {
	case "healthy":
		return 1
	case "degraded":
		return 0.5
	default:
		return 0
	}
}
