package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/orchestrator/jsonrpc"
	"github.com/tailored-agentic-units/orchestrator/protocol"
	"github.com/tailored-agentic-units/orchestrator/provider"
	"github.com/tailored-agentic-units/orchestrator/task"
)

type echoProvider struct {
	id string
}

func (e *echoProvider) ID() string { return e.id }
func (e *echoProvider) Capabilities() []provider.Capability {
	return []provider.Capability{{Protocol: "echo/v1", Method: "say"}}
}
func (e *echoProvider) MaxInFlight() int { return 4 }
func (e *echoProvider) Dispatch(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	return jsonrpc.Success(req.ID, map[string]any{"echoed": true})
}
func (e *echoProvider) Probe(ctx context.Context) error { return nil }

func TestOrchestratorEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsEnabled = false // avoid colliding with the process-global default registerer across test runs

	orch, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer orch.Stop()

	if err := orch.RegisterProtocol(protocol.Spec{
		Name:    "echo",
		Version: "v1",
		Methods: map[string]protocol.Method{"say": {}},
	}); err != nil {
		t.Fatalf("RegisterProtocol: %v", err)
	}

	if err := orch.RegisterProvider(ctx, &echoProvider{id: "p1"}); err != nil {
		t.Fatalf("RegisterProvider: %v", err)
	}

	tk := task.NewTask("", "echo/v1", "say", map[string]any{"text": "hi"})
	wf := task.NewWorkflow("e2e", task.ErrorPolicyFailFast, []*task.Task{tk})

	if err := orch.SubmitWorkflow(ctx, wf); err != nil {
		t.Fatalf("SubmitWorkflow: %v", err)
	}

	require.Eventually(t, func() bool {
		got, err := orch.Store().GetWorkflow(wf.ID)
		if err != nil {
			t.Fatalf("GetWorkflow: %v", err)
		}
		return got.Status.Terminal()
	}, time.Second, 5*time.Millisecond, "workflow never completed")

	got, err := orch.Store().GetWorkflow(wf.ID)
	require.NoError(t, err)
	require.Equal(t, task.WorkflowCompleted, got.Status)
}

func TestDefaultConfigMergeOverride(t *testing.T) {
	cfg := DefaultConfig()
	override := Config{QueueScanLimit: 128}
	merged := cfg.Merge(override)
	if merged.QueueScanLimit != 128 {
		t.Fatalf("expected override to take QueueScanLimit 128, got %d", merged.QueueScanLimit)
	}
	if merged.Coordinator.DeadLetterTimeout != cfg.Coordinator.DeadLetterTimeout {
		t.Fatalf("expected untouched Coordinator section to survive merge")
	}
}
