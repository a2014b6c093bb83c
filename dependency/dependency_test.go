package dependency

import (
	"testing"

	"github.com/tailored-agentic-units/orchestrator/task"
)

func mkTask(id string, deps ...string) *task.Task {
	return &task.Task{ID: id, DependsOn: deps, Params: map[string]any{}}
}

func TestDetectCycleNone(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("a"),
		mkTask("b", "a"),
		mkTask("c", "b"),
	})
	if cycle := g.DetectCycle(); cycle != nil {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
}

func TestDetectCycleFound(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("a", "c"),
		mkTask("b", "a"),
		mkTask("c", "b"),
	})
	cycle := g.DetectCycle()
	if cycle == nil {
		t.Fatalf("expected cycle to be detected")
	}
}

func TestSelfDependency(t *testing.T) {
	g := Build([]*task.Task{mkTask("a", "a")})
	self := g.SelfDependencies()
	if len(self) != 1 || self[0] != "a" {
		t.Fatalf("expected self-dependency on a, got %v", self)
	}
}

func TestInitialReadySetAndDepths(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("a"),
		mkTask("b", "a"),
		mkTask("c", "a"),
		mkTask("d", "b", "c"),
	})
	ready := g.InitialReadySet()
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("expected only a ready initially, got %v", ready)
	}

	depths := g.Depths()
	if depths["a"] != 0 || depths["d"] != 2 {
		t.Fatalf("unexpected depths: %v", depths)
	}
}

func TestNewlyReadyDiamond(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("a"),
		mkTask("b", "a"),
		mkTask("c", "a"),
		mkTask("d", "b", "c"),
	})

	completed := map[string]bool{"a": true}
	newly := g.NewlyReady("a", completed, nil)
	if len(newly) != 2 || newly[0] != "b" || newly[1] != "c" {
		t.Fatalf("expected b and c ready after a completes, got %v", newly)
	}

	completed["b"] = true
	newly = g.NewlyReady("b", completed, nil)
	if len(newly) != 0 {
		t.Fatalf("expected d not ready until c also completes, got %v", newly)
	}

	completed["c"] = true
	newly = g.NewlyReady("c", completed, nil)
	if len(newly) != 1 || newly[0] != "d" {
		t.Fatalf("expected d ready once both b and c complete, got %v", newly)
	}
}

func TestReferencesAndEscaping(t *testing.T) {
	params := map[string]any{
		"x": "${T1.n}",
		"y": "literal \\${not-a-ref}",
		"nested": map[string]any{
			"z": "${T2}",
		},
	}
	refs := References(params)
	if len(refs) != 2 || refs[0] != "T1" || refs[1] != "T2" {
		t.Fatalf("unexpected references: %v", refs)
	}
}

func TestVerifyReferencesTransitive(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("T1"),
		mkTask("T2", "T1"),
	})
	t2 := g.tasks["T2"]
	t2.Params = map[string]any{"x": "${T1.n}"}

	if errs := g.VerifyReferences(t2); len(errs) != 0 {
		t.Fatalf("expected transitive reference to validate, got %v", errs)
	}
}

func TestVerifyReferencesMissingTransitive(t *testing.T) {
	g := Build([]*task.Task{
		mkTask("T1"),
		mkTask("T2"),
	})
	t2 := g.tasks["T2"]
	t2.Params = map[string]any{"x": "${T1.n}"}

	errs := g.VerifyReferences(t2)
	if len(errs) != 1 {
		t.Fatalf("expected one error for undeclared dependency reference, got %v", errs)
	}
}
