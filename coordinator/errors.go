package coordinator

import (
	"errors"
	"strings"
)

// ErrDuplicateSubmission is returned when a workflow carrying an
// idempotency key already seen is submitted again.
var ErrDuplicateSubmission = errors.New("coordinator: workflow already submitted under this idempotency key")

// ValidationErrors aggregates every problem found while validating a
// submitted workflow, so a caller sees the whole set rather than the
// first failure.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return "coordinator: workflow validation failed: " + strings.Join(msgs, "; ")
}
