package task

import "time"

// Result is the success payload stored alongside a completed task.
type Result struct {
	TaskID    string         `json:"task_id"`
	Value     map[string]any `json:"value"`
	Completed time.Time      `json:"completed"`
}

// ErrorKind classifies a task-level failure per the error taxonomy (§7).
type ErrorKind string

const (
	ErrorKindValidation           ErrorKind = "ValidationError"
	ErrorKindProtocolConflict     ErrorKind = "ProtocolConflict"
	ErrorKindNoProviderAvailable  ErrorKind = "NoProviderAvailable"
	ErrorKindProviderTransport    ErrorKind = "ProviderTransportError"
	ErrorKindProviderTimeout      ErrorKind = "ProviderTimeout"
	ErrorKindJSONRPCMethod        ErrorKind = "JSONRPCMethodError"
	ErrorKindParameterReference   ErrorKind = "ParameterReferenceError"
	ErrorKindUnsatisfiedReference ErrorKind = "UnsatisfiedReference"
	ErrorKindInternal             ErrorKind = "InternalError"
)

// Retryable reports whether the error taxonomy entry for this kind may be
// retried per the task's RetryConfig. NoProviderAvailable is handled
// specially by the coordinator (it does not consume a retry attempt) but
// is still "retryable" in the sense that the task is not failed outright.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindNoProviderAvailable, ErrorKindProviderTransport, ErrorKindProviderTimeout:
		return true
	case ErrorKindJSONRPCMethod:
		// Depends on the JSON-RPC code; callers classifying a method
		// error resolve this via (*jsonrpc.Error).Retryable before setting Kind.
		return true
	default:
		return false
	}
}

// ErrorRecord captures one failed attempt. A bounded ring buffer of these
// (default capacity 20) is retained per task per §7 "Visibility".
type ErrorRecord struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	ProviderID string    `json:"provider_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Attempt    int       `json:"attempt"`
}

// ErrorHistory is a bounded, append-only ring buffer of ErrorRecords. The
// zero value is ready to use with the default capacity.
type ErrorHistory struct {
	capacity int
	records  []ErrorRecord
	start    int
}

const defaultErrorHistoryCapacity = 20

// NewErrorHistory creates a history with the given capacity, or the
// default (20) if capacity <= 0.
func NewErrorHistory(capacity int) *ErrorHistory {
	if capacity <= 0 {
		capacity = defaultErrorHistoryCapacity
	}
	return &ErrorHistory{capacity: capacity}
}

// Append records one failure, evicting the oldest record if the history
// is at capacity.
func (h *ErrorHistory) Append(rec ErrorRecord) {
	if h.capacity <= 0 {
		h.capacity = defaultErrorHistoryCapacity
	}
	if len(h.records) < h.capacity {
		h.records = append(h.records, rec)
		return
	}
	h.records[h.start] = rec
	h.start = (h.start + 1) % h.capacity
}

// Len returns the number of records currently retained.
func (h *ErrorHistory) Len() int {
	return len(h.records)
}

// Records returns the retained records in chronological order (oldest
// first).
func (h *ErrorHistory) Records() []ErrorRecord {
	if len(h.records) < h.capacity || h.start == 0 {
		out := make([]ErrorRecord, len(h.records))
		copy(out, h.records)
		return out
	}
	out := make([]ErrorRecord, 0, len(h.records))
	out = append(out, h.records[h.start:]...)
	out = append(out, h.records[:h.start]...)
	return out
}
