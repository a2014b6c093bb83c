package queue

import "errors"

// ErrTaskNotQueued is returned by Remove for a task id not currently in
// the queue.
var ErrTaskNotQueued = errors.New("queue: task not queued")
