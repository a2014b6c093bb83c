package provider

import "errors"

// Sentinel errors for the provider registry (C2).
var (
	// ErrProviderExists is returned by Register for a duplicate id.
	ErrProviderExists = errors.New("provider: already registered")

	// ErrProviderNotFound is returned for an unknown provider id.
	ErrProviderNotFound = errors.New("provider: not found")

	// ErrNoProviderAvailable is returned by Select when no eligible
	// provider supports the requested (protocol, method) pair. Per §7
	// this is retryable but does not consume a task's retry attempts —
	// the coordinator re-attempts assignment on registration or health
	// recovery instead.
	ErrNoProviderAvailable = errors.New("provider: no eligible provider available")

	// ErrProviderTransport is returned (wrapped with detail) when
	// dispatch fails below the JSON-RPC layer: connection refused,
	// timeout, decode failure. Counts against provider health.
	ErrProviderTransport = errors.New("provider: transport error")
)
