package task

import "time"

// RetryConfig governs how a failed task is rescheduled. Strategy selects
// the delay formula. BaseDelay and MaxDelay are time.Duration values;
// the struct has no custom JSON encoding, so they marshal as integer
// nanoseconds.
type RetryConfig struct {
	MaxAttempts int             `json:"max_attempts"`
	Strategy    BackoffStrategy `json:"strategy"`
	BaseDelay   time.Duration   `json:"base_delay"`
	MaxDelay    time.Duration   `json:"max_delay"`
	Jitter      bool            `json:"jitter"`
}

// DefaultRetryConfig mirrors the default a workflow file omitting `retry`
// should receive: a single attempt, no backoff, no jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 1,
		Strategy:    BackoffFixed,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Jitter:      false,
	}
}

// Merge fills zero-valued fields of r from source, following the
// composable-config convention used throughout this module.
func (r RetryConfig) Merge(source RetryConfig) RetryConfig {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = source.MaxAttempts
	}
	if r.Strategy == "" {
		r.Strategy = source.Strategy
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = source.BaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = source.MaxDelay
	}
	return r
}

// The §4.8 backoff formula itself (fixed/linear/exponential, capped at
// MaxDelay, with jitter) is computed by scheduler.ComputeRetryDelay,
// which wraps cenkalti/backoff/v4 rather than reimplementing the curve
// here.
