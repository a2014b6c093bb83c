// Package provider implements the provider registry (C2): connected
// providers, their capabilities, health state, load metrics, selection,
// and dispatch.
package provider

import (
	"context"

	"github.com/tailored-agentic-units/orchestrator/jsonrpc"
)

// Capability is one (protocol, method) pair a provider advertises on
// connect.
type Capability struct {
	Protocol string
	Method   string
}

// Provider is anything that can serve dispatched tasks: a duck-typed
// capability set plus a dispatch function plus a health probe, per §9
// "Dynamic dispatch / duck-typed providers". Concrete providers (LLM
// backends, sandboxed executors, echo providers) are external
// collaborators per §1; this module only depends on the interface.
type Provider interface {
	// ID returns the provider's stable identifier, assigned on connect.
	ID() string

	// Capabilities returns the (protocol, method) pairs this provider
	// implements.
	Capabilities() []Capability

	// Dispatch sends a JSON-RPC request and returns its response. A
	// non-nil error indicates a transport-level failure (connection
	// refused, timeout, decode error) — NOT a well-formed JSON-RPC error
	// response, which is carried in Response.Error instead.
	Dispatch(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)

	// Probe performs a lightweight health check. A non-nil error counts
	// as a failed probe.
	Probe(ctx context.Context) error

	// MaxInFlight returns the maximum concurrent in-flight requests this
	// provider accepts (default 1 for non-streaming providers, higher
	// for declared concurrent providers, per §4.8).
	MaxInFlight() int
}

// Supports reports whether any of a provider's advertised capabilities
// matches (protocol, method).
func Supports(p Provider, protocol, method string) bool {
	for _, c := range p.Capabilities() {
		if c.Protocol == protocol && c.Method == method {
			return true
		}
	}
	return false
}
