// Package substitution implements the parameter substitutor (C6):
// replacing ${task-id.path} references in a task's parameters with
// concrete values from the workflow's completed-results map,
// immediately before dispatch.
package substitution

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// refPattern matches ${task-id} or ${task-id.a.b.c}, capturing the
// referenced task id and the dotted path (including its leading dots, or
// empty for a bare ${task-id}).
var refPattern = regexp.MustCompile(`\$\{([^}.]+)((?:\.[^}.]+)*)\}`)

// Apply walks t.Params and returns a new parameter tree with every
// ${...} reference resolved against results (keyed by task id). The
// input task is not mutated.
func Apply(t *task.Task, results map[string]task.Result) (map[string]any, error) {
	out, err := substituteValue(t.Params, results)
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

func substituteValue(v any, results map[string]task.Result) (any, error) {
	switch x := v.(type) {
	case string:
		return substituteString(x, results)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, sub := range x {
			resolved, err := substituteValue(sub, results)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, sub := range x {
			resolved, err := substituteValue(sub, results)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// substituteString applies the substitution grammar to one string leaf.
// A leaf that is EXACTLY a placeholder substitutes the whole result
// value, preserving its type; a placeholder embedded in surrounding text
// is stringified; \${...} passes through literally with the backslash
// removed.
func substituteString(s string, results map[string]task.Result) (any, error) {
	if loc := refPattern.FindStringSubmatchIndex(s); loc != nil && loc[0] == 0 && loc[1] == len(s) {
		taskID := s[loc[2]:loc[3]]
		path := s[loc[4]:loc[5]]
		return resolveReference(taskID, path, results)
	}

	var sb strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '$' {
			sb.WriteByte('$')
			i += 2
			continue
		}
		if s[i] != '$' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i:]
		loc := refPattern.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			sb.WriteByte(s[i])
			i++
			continue
		}
		taskID := rest[loc[2]:loc[3]]
		path := rest[loc[4]:loc[5]]
		val, err := resolveReference(taskID, path, results)
		if err != nil {
			return nil, err
		}
		sb.WriteString(stringify(val))
		i += loc[1]
	}
	return sb.String(), nil
}

// resolveReference looks up taskID in results and walks path (a
// possibly-empty sequence of ".key" segments) into its result value.
func resolveReference(taskID, path string, results map[string]task.Result) (any, error) {
	result, ok := results[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsatisfiedReference, taskID)
	}

	var cur any = result.Value
	if path == "" {
		return cur, nil
	}

	for _, key := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s%s", ErrParameterReference, taskID, path)
		}
		v, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s%s", ErrParameterReference, taskID, path)
		}
		cur = v
	}
	return cur, nil
}

// stringify renders a value for embedding in surrounding text: JSON for
// objects/arrays, canonical decimal for numbers, lowercase for booleans,
// per §9 "Parameter substitution vs. typing".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
