// Package dependency implements the dependency resolver (C5): cycle
// detection, topological depth, ready-set computation, and
// parameter-reference verification.
package dependency

import (
	"regexp"
	"sort"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// Graph is the dependency graph of one workflow's tasks, built once at
// submission time. Per §9 it uses an arena-plus-index layout: tasks are
// addressed by id through the maps below rather than pointer-chased,
// since cycles are rejected before the graph is used further.
type Graph struct {
	tasks   map[string]*task.Task
	order   []string // submission order, for stable depth/ready-set iteration
	depends map[string][]string
}

// Build constructs a Graph from a task set, without yet checking for
// cycles (call DetectCycle separately so callers can decide how to
// report it).
func Build(tasks []*task.Task) *Graph {
	g := &Graph{
		tasks:   make(map[string]*task.Task, len(tasks)),
		depends: make(map[string][]string, len(tasks)),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t
		g.order = append(g.order, t.ID)
		g.depends[t.ID] = append([]string(nil), t.DependsOn...)
	}
	return g
}

// DetectCycle runs a depth-first search over the dependency edges,
// using a visit-count map and an explicit path the way the teacher's
// state-graph execution tracker does, generalized from a single linear
// walk to a full multi-parent DFS. It returns the offending cycle (task
// ids, first id repeated at the end) on the first cycle found, or nil if
// the graph is acyclic.
func (g *Graph) DetectCycle() []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.tasks))
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		switch state[id] {
		case visiting:
			// Found the back-edge; trim path to the cycle itself.
			cycleStart := 0
			for i, p := range path {
				if p == id {
					cycleStart = i
					break
				}
			}
			cycle := append([]string(nil), path[cycleStart:]...)
			return append(cycle, id)
		case done:
			return nil
		}

		state[id] = visiting
		path = append(path, id)

		for _, dep := range g.depends[id] {
			if cycle := visit(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.order {
		if state[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// SelfDependencies returns the ids of any task that lists itself as a
// dependency (§8 boundary case "self-dependency -> rejected"), checked
// separately from the general cycle search so the error can name the
// single offending task directly.
func (g *Graph) SelfDependencies() []string {
	var out []string
	for _, id := range g.order {
		for _, dep := range g.depends[id] {
			if dep == id {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Depths computes, for every task, its longest path from any root
// (a task with no dependencies), for observability.
func (g *Graph) Depths() map[string]int {
	depth := make(map[string]int, len(g.tasks))
	var compute func(id string) int
	computing := make(map[string]bool)
	compute = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		if computing[id] {
			return 0 // cycle already rejected elsewhere; avoid infinite recursion defensively
		}
		computing[id] = true
		max := 0
		for _, dep := range g.depends[id] {
			if d := compute(dep) + 1; d > max {
				max = d
			}
		}
		depth[id] = max
		computing[id] = false
		return max
	}
	for _, id := range g.order {
		compute(id)
	}
	return depth
}

// InitialReadySet returns the ids of tasks with no dependencies.
func (g *Graph) InitialReadySet() []string {
	var ready []string
	for _, id := range g.order {
		if len(g.depends[id]) == 0 {
			ready = append(ready, id)
		}
	}
	return ready
}

// dependents maps each task id to the ids of tasks that directly depend
// on it. It is rebuilt from the dependency lists on every call.
func (g *Graph) dependents() map[string][]string {
	out := make(map[string][]string, len(g.tasks))
	for _, id := range g.order {
		for _, dep := range g.depends[id] {
			out[dep] = append(out[dep], id)
		}
	}
	return out
}

// NewlyReady returns the ids of completedID's direct dependents whose
// dependencies are now all in completed. What counts as satisfied is the
// caller's choice (the coordinator passes every completed or failed
// task); the set must include completedID. A dependent for which
// alreadyReady returns true is excluded.
func (g *Graph) NewlyReady(completedID string, completed map[string]bool, alreadyReady func(id string) bool) []string {
	var newly []string
	for _, dependent := range g.dependents()[completedID] {
		if alreadyReady != nil && alreadyReady(dependent) {
			continue
		}
		satisfied := true
		for _, dep := range g.depends[dependent] {
			if !completed[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			newly = append(newly, dependent)
		}
	}
	sort.Strings(newly)
	return newly
}

// paramRefPattern matches ${task-id.path.into.result} or ${task-id},
// capturing the referenced task id and the optional dotted path.
var paramRefPattern = regexp.MustCompile(`\$\{([^}.]+)((?:\.[^}.]+)*)\}`)

// References scans every string leaf of params for ${task-id...}
// patterns, returning the set of referenced task ids (unique, sorted).
// Escaped references (\${...}) are not returned.
func References(params map[string]any) []string {
	found := map[string]bool{}
	var walk func(v any, escaped bool)
	walk = func(v any, _ bool) {
		switch x := v.(type) {
		case string:
			for _, ref := range scanReferences(x) {
				found[ref] = true
			}
		case map[string]any:
			for _, sub := range x {
				walk(sub, false)
			}
		case []any:
			for _, sub := range x {
				walk(sub, false)
			}
		}
	}
	walk(params, false)

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scanReferences extracts referenced task ids from one string leaf,
// skipping escaped \${...} occurrences.
func scanReferences(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '$' {
			i += 2
			continue
		}
		if s[i] != '$' {
			i++
			continue
		}
		rest := s[i:]
		loc := paramRefPattern.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			i++
			continue
		}
		id := rest[loc[2]:loc[3]]
		out = append(out, id)
		i += loc[1]
	}
	return out
}

// VerifyReferences checks that every task id referenced in a task's
// params is (a) present in the workflow and (b) a transitive dependency
// of the task, per §4.5. Missing transitive dependencies are reported
// rather than silently added.
func (g *Graph) VerifyReferences(t *task.Task) []error {
	var errs []error
	refs := References(t.Params)
	if len(refs) == 0 {
		return nil
	}

	transitive := g.transitiveDependencies(t.ID)
	for _, ref := range refs {
		if _, exists := g.tasks[ref]; !exists {
			errs = append(errs, &task.ValidationError{TaskID: t.ID, Field: "params", Message: "parameter reference to unknown task " + ref})
			continue
		}
		if !transitive[ref] {
			errs = append(errs, &task.ValidationError{TaskID: t.ID, Field: "params", Message: "parameter reference to " + ref + " which is not a declared (transitive) dependency"})
		}
	}
	return errs
}

func (g *Graph) transitiveDependencies(id string) map[string]bool {
	out := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		for _, dep := range g.depends[id] {
			if !out[dep] {
				out[dep] = true
				walk(dep)
			}
		}
	}
	walk(id)
	return out
}
