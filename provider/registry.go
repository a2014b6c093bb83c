package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tailored-agentic-units/orchestrator/jsonrpc"
	"github.com/tailored-agentic-units/orchestrator/metrics"
	"github.com/tailored-agentic-units/orchestrator/observability"
)

// Registry tracks connected providers, their capabilities, health, and
// load metrics, and selects a provider for a (protocol, method) pair
// (C2). Thread-safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*record
	breakers map[string]*gobreaker.CircuitBreaker
	cursors  map[string]int // round-robin cursor keyed by "protocol/method"
	observer observability.Observer
	metrics  *metrics.Metrics
}

// Option configures a Registry after construction.
type Option func(*Registry)

// WithMetrics attaches m so Dispatch/Probe/Register record provider-level
// gauges and counters on it. Omitting this option leaves metrics
// recording a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty provider registry. A nil observer is
// replaced with observability.NoOpObserver{}.
func NewRegistry(observer observability.Observer, opts ...Option) *Registry {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	r := &Registry{
		records:  make(map[string]*record),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		cursors:  make(map[string]int),
		observer: observer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a connected provider, recording it as healthy with zero
// counters per §4.2. A circuit breaker is created per provider id: it
// opens after 5 consecutive dispatch failures and then rejects calls for
// 10s, independently of the 3/5-consecutive-failure health demotion this
// registry also tracks.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, exists := r.records[id]; exists {
		return fmt.Errorf("%w: %s", ErrProviderExists, id)
	}

	r.records[id] = newRecord(p)
	r.breakers[id] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        id,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	r.observer.OnEvent(context.Background(), observability.Event{
		Type:      "provider.registered",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "provider.Registry",
		Data:      map[string]any{"provider_id": id},
	})

	if r.metrics != nil {
		r.metrics.ProviderInFlight.WithLabelValues(id).Set(0)
		r.metrics.ProviderHealth.WithLabelValues(id).Set(metrics.HealthValue(string(HealthHealthy)))
	}

	return nil
}

// Unregister removes a provider from the registry.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	delete(r.records, id)
	delete(r.breakers, id)
	return nil
}

// Select returns an eligible provider for (protocol, method), or
// ErrNoProviderAvailable. Eligibility: health in {healthy, degraded} and
// the provider supports the method. Tie-break, in order: fewest
// in-flight, highest success rate, lowest response-time estimate,
// round-robin cursor. Degraded providers are only chosen if no healthy
// candidate exists.
func (r *Registry) Select(protocol, method string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var healthy, degraded []*record
	for _, rec := range r.records {
		if !rec.health.eligible() || !Supports(rec.provider, protocol, method) {
			continue
		}
		if rec.inFlight >= rec.provider.MaxInFlight() {
			continue
		}
		if rec.health.status == HealthHealthy {
			healthy = append(healthy, rec)
		} else {
			degraded = append(degraded, rec)
		}
	}

	candidates := healthy
	if len(candidates) == 0 {
		candidates = degraded
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoProviderAvailable, protocol, method)
	}

	chosen := r.pickBest(protocol, method, candidates)
	return chosen.provider, nil
}

// pickBest applies the tie-break ordering to candidates, assumed
// pre-filtered to eligible/capable/non-saturated providers. Caller holds
// r.mu.
func (r *Registry) pickBest(protocol, method string, candidates []*record) *record {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.inFlight != b.inFlight {
			return a.inFlight < b.inFlight
		}
		ra, rb := a.successRate(), b.successRate()
		if ra != rb {
			return ra > rb
		}
		ta, tb := a.responseTimeEstimate(), b.responseTimeEstimate()
		return ta < tb
	})

	// Collect the leading tied group (identical in-flight/success-rate/
	// response-time) and round-robin within it.
	best := candidates[0]
	tied := []*record{best}
	for _, rec := range candidates[1:] {
		if rec.inFlight == best.inFlight && rec.successRate() == best.successRate() && rec.responseTimeEstimate() == best.responseTimeEstimate() {
			tied = append(tied, rec)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	sort.Slice(tied, func(i, j int) bool { return tied[i].provider.ID() < tied[j].provider.ID() })
	key := protocol + "/" + method
	cursor := r.cursors[key] % len(tied)
	r.cursors[key] = (r.cursors[key] + 1) % len(tied)
	return tied[cursor]
}

// Dispatch sends req to the provider identified by providerID, tracking
// in-flight count and rolling metrics around the call, and routing
// through that provider's circuit breaker. It returns a
// ProviderTransportError-wrapped error for transport-level failures (and
// for a breaker trip); a well-formed JSON-RPC error response is returned
// successfully (non-nil *jsonrpc.Response, nil error) since per §4.2 it
// must NOT count against provider health.
func (r *Registry) Dispatch(ctx context.Context, providerID string, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	r.mu.Lock()
	rec, ok := r.records[providerID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	breaker := r.breakers[providerID]
	rec.inFlight++
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ProviderInFlight.WithLabelValues(providerID).Inc()
	}

	start := time.Now()
	result, err := breaker.Execute(func() (interface{}, error) {
		return rec.provider.Dispatch(ctx, req)
	})
	elapsed := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()
	rec.inFlight--

	if r.metrics != nil {
		r.metrics.ProviderInFlight.WithLabelValues(providerID).Dec()
		r.metrics.DispatchLatency.WithLabelValues(providerID).Observe(elapsed.Seconds())
	}

	if err != nil {
		rec.recordOutcome(false, elapsed)
		rec.health.recordDispatchFailure()
		if r.metrics != nil {
			r.metrics.ProviderDispatches.WithLabelValues(providerID, "failure").Inc()
			r.metrics.ProviderHealth.WithLabelValues(providerID).Set(metrics.HealthValue(string(rec.health.status)))
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderTransport, providerID, err)
	}

	rec.recordOutcome(true, elapsed)
	rec.health.recordDispatchSuccess()
	if r.metrics != nil {
		r.metrics.ProviderDispatches.WithLabelValues(providerID, "success").Inc()
		r.metrics.ProviderHealth.WithLabelValues(providerID).Set(metrics.HealthValue(string(rec.health.status)))
	}
	return result.(*jsonrpc.Response), nil
}

// Probe runs a health probe against providerID and updates its health
// state. Called by the scheduler (C7) at the provider's adaptive
// interval, never on a periodic loop owned by this registry.
func (r *Registry) Probe(ctx context.Context, providerID string) (Health, error) {
	r.mu.Lock()
	rec, ok := r.records[providerID]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	err := rec.provider.Probe(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	status := rec.health.recordProbe(err == nil)

	r.observer.OnEvent(ctx, observability.Event{
		Type:      "provider.probed",
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "provider.Registry",
		Data:      map[string]any{"provider_id": providerID, "status": string(status), "ok": err == nil},
	})

	if r.metrics != nil {
		r.metrics.ProviderHealth.WithLabelValues(providerID).Set(metrics.HealthValue(string(status)))
	}

	return status, nil
}

// NextProbeInterval returns the adaptive interval at which providerID
// should next be probed.
func (r *Registry) NextProbeInterval(providerID string) (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[providerID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return rec.health.probeInterval, nil
}

// Snapshot returns a point-in-time view of every registered provider.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Health returns the current health of providerID.
func (r *Registry) Health(providerID string) (Health, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[providerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}
	return rec.health.status, nil
}

// AnyEligible reports whether any registered provider supports
// (protocol, method) at all; health and saturation are not checked. The
// coordinator passes it to the queue as the capability filter, so a task
// no registered provider supports stays queued while others are dequeued.
func (r *Registry) AnyEligible(protocol, method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if Supports(rec.provider, protocol, method) {
			return true
		}
	}
	return false
}
