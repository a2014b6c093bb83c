package coordinator

import "github.com/tailored-agentic-units/orchestrator/observability"

// Event types emitted by the coordinator at every milestone of a
// workflow's lifecycle, following the teacher's one-constant-per-
// observable-transition convention.
const (
	EventWorkflowSubmitted  observability.EventType = "workflow.submitted"
	EventWorkflowRunning    observability.EventType = "workflow.running"
	EventWorkflowCompleted  observability.EventType = "workflow.completed"
	EventWorkflowFailed     observability.EventType = "workflow.failed"
	EventWorkflowCancelled  observability.EventType = "workflow.cancelled"
	EventTaskAssigned       observability.EventType = "task.assigned"
	EventTaskDispatched     observability.EventType = "task.dispatched"
	EventTaskCompleted      observability.EventType = "task.completed"
	EventTaskFailed         observability.EventType = "task.failed"
	EventTaskRetryScheduled observability.EventType = "task.retry_scheduled"
	EventTaskCancelled      observability.EventType = "task.cancelled"
	EventTaskTimeout        observability.EventType = "task.timeout"
	EventProviderRecovered  observability.EventType = "provider.recovered"
	EventError              observability.EventType = "coordinator.error"
)
