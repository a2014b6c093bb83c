package substitution

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/orchestrator/task"
)

func TestApplyExactPlaceholderPreservesType(t *testing.T) {
	results := map[string]task.Result{
		"T1": {Value: map[string]any{"n": float64(5)}},
	}
	tk := &task.Task{Params: map[string]any{"x": "${T1.n}"}}

	out, err := Apply(tk, results)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out["x"].(float64) != 5 {
		t.Fatalf("expected preserved float64 5, got %#v", out["x"])
	}
}

func TestApplyWholeResultSubstitution(t *testing.T) {
	results := map[string]task.Result{
		"T1": {Value: map[string]any{"n": float64(5)}},
	}
	tk := &task.Task{Params: map[string]any{"x": "${T1}"}}

	out, err := Apply(tk, results)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	m, ok := out["x"].(map[string]any)
	if !ok || m["n"].(float64) != 5 {
		t.Fatalf("expected whole result map substituted, got %#v", out["x"])
	}
}

func TestApplyEmbeddedStringification(t *testing.T) {
	results := map[string]task.Result{
		"T1": {Value: map[string]any{"n": float64(5)}},
	}
	tk := &task.Task{Params: map[string]any{"x": "value is ${T1.n} units"}}

	out, err := Apply(tk, results)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out["x"] != "value is 5 units" {
		t.Fatalf("unexpected stringified result: %v", out["x"])
	}
}

func TestApplyEscaping(t *testing.T) {
	tk := &task.Task{Params: map[string]any{"x": "literal \\${T1.n}"}}
	out, err := Apply(tk, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out["x"] != "literal ${T1.n}" {
		t.Fatalf("unexpected escaped result: %v", out["x"])
	}
}

func TestApplyUnsatisfiedReference(t *testing.T) {
	tk := &task.Task{Params: map[string]any{"x": "${T1.n}"}}
	_, err := Apply(tk, map[string]task.Result{})
	if !errors.Is(err, ErrUnsatisfiedReference) {
		t.Fatalf("expected ErrUnsatisfiedReference, got %v", err)
	}
}

func TestApplyMissingPath(t *testing.T) {
	results := map[string]task.Result{
		"T1": {Value: map[string]any{"n": float64(5)}},
	}
	tk := &task.Task{Params: map[string]any{"x": "${T1.missing}"}}
	_, err := Apply(tk, results)
	if !errors.Is(err, ErrParameterReference) {
		t.Fatalf("expected ErrParameterReference, got %v", err)
	}
}

func TestApplyBooleanAndObjectStringification(t *testing.T) {
	results := map[string]task.Result{
		"T1": {Value: map[string]any{"ok": true, "obj": map[string]any{"a": float64(1)}}},
	}
	tk := &task.Task{Params: map[string]any{
		"flag": "is ${T1.ok}",
		"blob": "data: ${T1.obj}",
	}}
	out, err := Apply(tk, results)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out["flag"] != "is true" {
		t.Fatalf("unexpected boolean stringification: %v", out["flag"])
	}
	if out["blob"] != `data: {"a":1}` {
		t.Fatalf("unexpected object stringification: %v", out["blob"])
	}
}
