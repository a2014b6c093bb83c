package protocol

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/orchestrator/task"
)

// Registry stores protocol specifications keyed by "name/version" and
// validates tasks against them (C1). Thread-safe for concurrent access,
// following the mutex-guarded map shape used throughout this module's
// registries.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates an empty protocol registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a protocol spec. Registering the same key twice with an
// equivalent method table is a no-op; registering it with a different
// table returns ErrProtocolConflict. Register also rejects a spec whose
// Extends chain would cycle back to itself.
func (r *Registry) Register(spec Spec) error {
	key := spec.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.specs[key]; ok {
		if equalMethods(existing.Methods, spec.Methods) && existing.Extends == spec.Extends {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrProtocolConflict, key)
	}

	r.specs[key] = spec

	if err := r.checkExtendsCycleLocked(key, map[string]bool{}); err != nil {
		delete(r.specs, key)
		return err
	}

	return nil
}

func (r *Registry) checkExtendsCycleLocked(key string, seen map[string]bool) error {
	if seen[key] {
		return fmt.Errorf("%w: %s", ErrExtendsCycle, key)
	}
	seen[key] = true

	spec, ok := r.specs[key]
	if !ok || spec.Extends == "" {
		return nil
	}
	return r.checkExtendsCycleLocked(spec.Extends, seen)
}

// Lookup returns the spec registered under name/version.
func (r *Registry) Lookup(name, version string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := specKey(name, version)
	spec, ok := r.specs[key]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrProtocolNotFound, key)
	}
	return spec, nil
}

// List returns all registered spec keys, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.specs))
	for k := range r.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolveMethod walks the Extends chain of the spec registered at key,
// returning the first Method found for name (own methods take precedence
// over inherited ones, per §3 "inherited methods are visible unless
// explicitly overridden").
func (r *Registry) resolveMethod(key, name string, seen map[string]bool) (Method, bool) {
	if seen[key] {
		return Method{}, false
	}
	seen[key] = true

	spec, ok := r.specs[key]
	if !ok {
		return Method{}, false
	}
	if m, ok := spec.Methods[name]; ok {
		return m, true
	}
	if spec.Extends == "" {
		return Method{}, false
	}
	return r.resolveMethod(spec.Extends, name, seen)
}

// ValidateTask checks that t's protocol is known, its method exists
// (transitively through Extends), and its parameters conform to the
// method's parameter schema. It returns all violations found rather than
// stopping at the first.
func (r *Registry) ValidateTask(t *task.Task) []error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, version, ok := splitProtocol(t.Protocol)
	if !ok {
		return []error{&task.ValidationError{TaskID: t.ID, Field: "protocol", Message: "malformed protocol identifier, expected name/version"}}
	}

	key := specKey(name, version)
	if _, ok := r.specs[key]; !ok {
		return []error{&task.ValidationError{TaskID: t.ID, Field: "protocol", Message: fmt.Sprintf("unknown protocol %q", key)}}
	}

	method, ok := r.resolveMethod(key, t.Method, map[string]bool{})
	if !ok {
		return []error{&task.ValidationError{TaskID: t.ID, Field: "method", Message: fmt.Sprintf("unknown method %q for protocol %q", t.Method, key)}}
	}

	if method.Params == nil {
		return nil
	}
	return method.Params.Validate(t.ID, "params", map[string]any(t.Params))
}

// splitProtocol parses a "name/version" identifier. It splits on the
// last slash so that names containing slashes (nested-tool style) still
// resolve correctly for the version suffix.
func splitProtocol(id string) (name, version string, ok bool) {
	idx := -1
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			idx = i
			break
		}
	}
	if idx <= 0 || idx == len(id)-1 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}
