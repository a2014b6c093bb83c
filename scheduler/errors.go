package scheduler

import "errors"

// ErrEventNotScheduled is returned by Cancel for a dedupe key not
// currently scheduled.
var ErrEventNotScheduled = errors.New("scheduler: event not scheduled")
