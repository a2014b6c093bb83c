package task

import "errors"

// Sentinel errors returned by the task data model and the components that
// build on it. Components wrap these with fmt.Errorf("...: %w", err) to add
// task/workflow identifiers.
var (
	// ErrDuplicateTaskID is returned when a workflow declares the same
	// task id twice.
	ErrDuplicateTaskID = errors.New("task: duplicate task id")

	// ErrSelfDependency is returned when a task lists itself as a
	// dependency.
	ErrSelfDependency = errors.New("task: task cannot depend on itself")

	// ErrUnknownDependency is returned when a task's dependency list
	// names a task id not present in the workflow.
	ErrUnknownDependency = errors.New("task: dependency references unknown task")

	// ErrInvalidTransition is returned when a caller attempts to move a
	// task to a status not reachable from its current one.
	ErrInvalidTransition = errors.New("task: invalid status transition")

	// ErrUnsatisfiedReference names the case of a task's parameters
	// referencing a task that has not completed successfully — either
	// because continue-on-error left it failed, or because the
	// coordinator invariant that only satisfied tasks are assigned was
	// violated. The substitution package reports that case with its own
	// substitution.ErrUnsatisfiedReference; no code returns this value.
	ErrUnsatisfiedReference = errors.New("task: unsatisfied parameter reference")
)

// ValidationError reports one structural or schema problem found while
// validating a task or workflow. Multiple ValidationErrors may be returned
// together as a slice.
type ValidationError struct {
	TaskID  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.TaskID == "" {
		return e.Field + ": " + e.Message
	}
	return e.TaskID + "." + e.Field + ": " + e.Message
}

// CycleError reports a dependency cycle found during workflow submission.
// Path lists the task ids in the cycle, in traversal order, with the first
// id repeated at the end to make the cycle explicit.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	s := "task: dependency cycle detected:"
	for i, id := range e.Path {
		if i > 0 {
			s += " ->"
		}
		s += " " + id
	}
	return s
}
