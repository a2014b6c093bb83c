package store

import "errors"

// Sentinel errors for the persistence backend (C3).
var (
	ErrWorkflowNotFound = errors.New("store: workflow not found")
	ErrTaskNotFound      = errors.New("store: task not found")
	ErrUnknownBackend    = errors.New("store: unknown backend name")
)
