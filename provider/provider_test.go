package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tailored-agentic-units/orchestrator/jsonrpc"
)

type fakeProvider struct {
	id          string
	caps        []Capability
	maxInFlight int
	dispatchErr error
	probeErr    error
}

func (f *fakeProvider) ID() string                 { return f.id }
func (f *fakeProvider) Capabilities() []Capability { return f.caps }
func (f *fakeProvider) MaxInFlight() int {
	if f.maxInFlight == 0 {
		return 1
	}
	return f.maxInFlight
}
func (f *fakeProvider) Dispatch(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	if f.dispatchErr != nil {
		return nil, f.dispatchErr
	}
	return jsonrpc.Success(req.ID, map[string]any{"ok": true})
}
func (f *fakeProvider) Probe(ctx context.Context) error { return f.probeErr }

func capsFor(protocol, method string) []Capability {
	return []Capability{{Protocol: protocol, Method: method}}
}

func TestSelectNoProviderAvailable(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Select("llm/v1", "generate")
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestSelectFewestInFlight(t *testing.T) {
	r := NewRegistry(nil)
	p1 := &fakeProvider{id: "p1", caps: capsFor("llm/v1", "generate"), maxInFlight: 5}
	p2 := &fakeProvider{id: "p2", caps: capsFor("llm/v1", "generate"), maxInFlight: 5}
	if err := r.Register(p1); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(p2); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	r.records["p1"].inFlight = 3
	r.mu.Unlock()

	chosen, err := r.Select("llm/v1", "generate")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.ID() != "p2" {
		t.Fatalf("expected p2 (fewer in-flight), got %s", chosen.ID())
	}
}

func TestSelectDegradedOnlyWhenNoHealthy(t *testing.T) {
	r := NewRegistry(nil)
	p1 := &fakeProvider{id: "p1", caps: capsFor("llm/v1", "generate")}
	if err := r.Register(p1); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	r.records["p1"].health.status = HealthDegraded
	r.mu.Unlock()

	chosen, err := r.Select("llm/v1", "generate")
	if err != nil {
		t.Fatalf("expected degraded provider to be selected, got err %v", err)
	}
	if chosen.ID() != "p1" {
		t.Fatalf("unexpected provider %s", chosen.ID())
	}
}

func TestSelectUnavailableExcluded(t *testing.T) {
	r := NewRegistry(nil)
	p1 := &fakeProvider{id: "p1", caps: capsFor("llm/v1", "generate")}
	if err := r.Register(p1); err != nil {
		t.Fatal(err)
	}
	r.mu.Lock()
	r.records["p1"].health.status = HealthUnavailable
	r.mu.Unlock()

	_, err := r.Select("llm/v1", "generate")
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestHealthDemotionThresholds(t *testing.T) {
	h := newHealthState()
	for i := 0; i < 2; i++ {
		if s := h.recordProbe(false); s != HealthHealthy {
			t.Fatalf("expected still healthy after %d failures, got %s", i+1, s)
		}
	}
	if s := h.recordProbe(false); s != HealthDegraded {
		t.Fatalf("expected degraded after 3 failures, got %s", s)
	}
	h.recordProbe(false)
	if s := h.recordProbe(false); s != HealthUnavailable {
		t.Fatalf("expected unavailable after 5 failures, got %s", s)
	}

	if s := h.recordProbe(true); s != HealthUnavailable {
		t.Fatalf("expected to remain unavailable after one success, got %s", s)
	}
	if s := h.recordProbe(true); s != HealthHealthy {
		t.Fatalf("expected healthy after two consecutive successes, got %s", s)
	}
}

func TestProbeIntervalAdaptation(t *testing.T) {
	h := newHealthState()
	if h.probeInterval != ProbeIntervalInitial {
		t.Fatalf("expected initial interval %v, got %v", ProbeIntervalInitial, h.probeInterval)
	}
	h.recordProbe(false)
	if h.probeInterval != ProbeIntervalInitial/2 {
		t.Fatalf("expected halved interval, got %v", h.probeInterval)
	}

	h2 := newHealthState()
	h2.recordProbe(true)
	h2.recordProbe(true)
	h2.recordProbe(true)
	if h2.probeInterval != ProbeIntervalInitial*2 {
		t.Fatalf("expected doubled interval after 3 successes, got %v", h2.probeInterval)
	}
}

func TestDispatchSuccessAndFailure(t *testing.T) {
	r := NewRegistry(nil)
	ok := &fakeProvider{id: "ok", caps: capsFor("llm/v1", "generate")}
	bad := &fakeProvider{id: "bad", caps: capsFor("llm/v1", "generate"), dispatchErr: errors.New("boom")}
	if err := r.Register(ok); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(bad); err != nil {
		t.Fatal(err)
	}

	req, _ := jsonrpc.NewRequest("1", "generate", map[string]any{})

	if _, err := r.Dispatch(context.Background(), "ok", req); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if _, err := r.Dispatch(context.Background(), "bad", req); err == nil {
		t.Fatalf("expected transport error")
	}

	snap := r.Snapshot()
	var badSnap Snapshot
	for _, s := range snap {
		if s.ID == "bad" {
			badSnap = s
		}
	}
	if badSnap.ConsecutiveFailed != 1 {
		t.Fatalf("expected 1 consecutive failure recorded, got %d", badSnap.ConsecutiveFailed)
	}
	_ = time.Now()
}
