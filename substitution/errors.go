package substitution

import "errors"

// Sentinel errors for the parameter substitutor (C6).
var (
	// ErrParameterReference is returned when a ${task-id.path} reference
	// cannot be resolved: an unknown dotted path into an otherwise
	// available result.
	ErrParameterReference = errors.New("substitution: parameter reference could not be resolved")

	// ErrUnsatisfiedReference is returned when a referenced task has not
	// completed successfully. Under continue-on-error this is the normal
	// outcome for a dependent of a failed task (the coordinator fails the
	// dependent with this error); otherwise it indicates an internal
	// invariant violation (the scheduler should not have selected the
	// task).
	ErrUnsatisfiedReference = errors.New("substitution: referenced task has not completed")
)
