package protocol

import "errors"

// Sentinel errors for the protocol registry (C1).
var (
	// ErrProtocolConflict is returned by Register when name/version is
	// already registered with a different definition.
	ErrProtocolConflict = errors.New("protocol: conflicting registration for same name/version")

	// ErrProtocolNotFound is returned by Lookup for an unknown
	// name/version.
	ErrProtocolNotFound = errors.New("protocol: not found")

	// ErrMethodNotFound is returned when a task names a method absent
	// from the resolved (including inherited) method table.
	ErrMethodNotFound = errors.New("protocol: method not found")

	// ErrExtendsCycle is returned by Register when a protocol's extends
	// chain would cycle back to itself.
	ErrExtendsCycle = errors.New("protocol: extends chain forms a cycle")
)
