package protocol

import (
	"fmt"
	"regexp"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// Schema is a JSON-Schema-like description of a value: types, required
// object keys, ranges, enums, and patterns, per §3 "Protocol
// specification". It is intentionally a small structural subset rather
// than a full JSON-Schema implementation — the spec names exactly these
// constraint kinds and no others.
type Schema struct {
	Type       string             `json:"type,omitempty"` // "object","string","number","integer","boolean","array"
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Enum       []any              `json:"enum,omitempty"`
	Minimum    *float64           `json:"minimum,omitempty"`
	Maximum    *float64           `json:"maximum,omitempty"`
	Pattern    string             `json:"pattern,omitempty"`
}

// Validate checks value against the schema and appends any violations,
// rooted at path, to the returned slice of ValidationErrors. An empty
// (nil) Schema accepts anything, matching "params" on a method that
// declares no schema.
func (s *Schema) Validate(taskID, path string, value any) []error {
	if s == nil {
		return nil
	}

	var errs []error

	if s.Type != "" {
		if !matchesType(s.Type, value) {
			errs = append(errs, &task.ValidationError{
				TaskID:  taskID,
				Field:   path,
				Message: fmt.Sprintf("expected type %q, got %T", s.Type, value),
			})
			return errs
		}
	}

	if len(s.Enum) > 0 && !inEnum(s.Enum, value) {
		errs = append(errs, &task.ValidationError{
			TaskID:  taskID,
			Field:   path,
			Message: "value not in enum",
		})
	}

	if s.Pattern != "" {
		if str, ok := value.(string); ok {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				errs = append(errs, &task.ValidationError{TaskID: taskID, Field: path, Message: fmt.Sprintf("invalid pattern: %v", err)})
			} else if !re.MatchString(str) {
				errs = append(errs, &task.ValidationError{TaskID: taskID, Field: path, Message: fmt.Sprintf("value does not match pattern %q", s.Pattern)})
			}
		}
	}

	if s.Minimum != nil || s.Maximum != nil {
		if n, ok := numericValue(value); ok {
			if s.Minimum != nil && n < *s.Minimum {
				errs = append(errs, &task.ValidationError{TaskID: taskID, Field: path, Message: fmt.Sprintf("value %v below minimum %v", n, *s.Minimum)})
			}
			if s.Maximum != nil && n > *s.Maximum {
				errs = append(errs, &task.ValidationError{TaskID: taskID, Field: path, Message: fmt.Sprintf("value %v above maximum %v", n, *s.Maximum)})
			}
		}
	}

	switch s.Type {
	case "object":
		obj, _ := value.(map[string]any)
		for _, req := range s.Required {
			if _, ok := obj[req]; !ok {
				errs = append(errs, &task.ValidationError{TaskID: taskID, Field: path + "." + req, Message: "required field missing"})
			}
		}
		for key, propSchema := range s.Properties {
			if v, ok := obj[key]; ok {
				errs = append(errs, propSchema.Validate(taskID, path+"."+key, v)...)
			}
		}
	case "array":
		if s.Items != nil {
			arr, _ := value.([]any)
			for i, item := range arr {
				errs = append(errs, s.Items.Validate(taskID, fmt.Sprintf("%s[%d]", path, i), item)...)
			}
		}
	}

	return errs
}

func matchesType(t string, value any) bool {
	switch t {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := numericValue(value)
		return ok
	case "integer":
		n, ok := numericValue(value)
		return ok && n == float64(int64(n))
	default:
		return true
	}
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func inEnum(enum []any, value any) bool {
	for _, candidate := range enum {
		if fmt.Sprint(candidate) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}
