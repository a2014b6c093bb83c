package dependency

import "errors"

// ErrMissingTransitiveDependency names the case of a task's parameters
// referencing another task it does not (transitively) depend on.
// Graph.VerifyReferences reports that case as a *task.ValidationError and
// does not return this value.
var ErrMissingTransitiveDependency = errors.New("dependency: parameter reference to a task that is not a declared dependency")
