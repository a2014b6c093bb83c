package protocol

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/task"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	spec := Spec{
		Name:    "llm",
		Version: "v1",
		Methods: map[string]Method{
			"generate": {Params: &Schema{Type: "object", Required: []string{"prompt"}}},
		},
	}

	if err := r.Register(spec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Lookup("llm", "v1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Name != "llm" {
		t.Fatalf("got name %q", got.Name)
	}
}

func TestRegisterConflict(t *testing.T) {
	r := NewRegistry()
	a := Spec{Name: "llm", Version: "v1", Methods: map[string]Method{"generate": {}}}
	b := Spec{Name: "llm", Version: "v1", Methods: map[string]Method{"other": {}}}

	if err := r.Register(a); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if err := r.Register(b); !errors.Is(err, ErrProtocolConflict) {
		t.Fatalf("expected ErrProtocolConflict, got %v", err)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	spec := Spec{Name: "llm", Version: "v1", Methods: map[string]Method{"generate": {}}}
	if err := r.Register(spec); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(spec); err != nil {
		t.Fatalf("re-register identical spec should be a no-op: %v", err)
	}
}

func TestExtendsInheritance(t *testing.T) {
	r := NewRegistry()
	base := Spec{Name: "base", Version: "v1", Methods: map[string]Method{
		"ping": {},
	}}
	child := Spec{Name: "child", Version: "v1", Extends: "base/v1", Methods: map[string]Method{
		"pong": {},
	}}
	if err := r.Register(base); err != nil {
		t.Fatalf("register base: %v", err)
	}
	if err := r.Register(child); err != nil {
		t.Fatalf("register child: %v", err)
	}

	tk := &task.Task{ID: "t1", Protocol: "child/v1", Method: "ping", Params: map[string]any{}}
	if errs := r.ValidateTask(tk); len(errs) != 0 {
		t.Fatalf("expected inherited method to validate, got %v", errs)
	}
}

func TestExtendsCycleRejected(t *testing.T) {
	r := NewRegistry()
	a := Spec{Name: "a", Version: "v1", Extends: "b/v1", Methods: map[string]Method{}}
	b := Spec{Name: "b", Version: "v1", Extends: "a/v1", Methods: map[string]Method{}}

	if err := r.Register(a); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register(b); !errors.Is(err, ErrExtendsCycle) {
		t.Fatalf("expected ErrExtendsCycle, got %v", err)
	}
}

func TestValidateTaskUnknownProtocol(t *testing.T) {
	r := NewRegistry()
	tk := &task.Task{ID: "t1", Protocol: "missing/v1", Method: "generate"}
	errs := r.ValidateTask(tk)
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
}

func TestValidateTaskParamsSchema(t *testing.T) {
	r := NewRegistry()
	spec := Spec{
		Name:    "llm",
		Version: "v1",
		Methods: map[string]Method{
			"generate": {Params: &Schema{Type: "object", Required: []string{"prompt"}}},
		},
	}
	if err := r.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}

	tk := &task.Task{ID: "t1", Protocol: "llm/v1", Method: "generate", Params: map[string]any{}}
	errs := r.ValidateTask(tk)
	if len(errs) != 1 {
		t.Fatalf("expected missing-required-field error, got %v", errs)
	}

	tk.Params = map[string]any{"prompt": "hello"}
	if errs := r.ValidateTask(tk); len(errs) != 0 {
		t.Fatalf("expected no errors once required field present, got %v", errs)
	}
}
