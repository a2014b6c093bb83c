package store

import (
	"fmt"
	"sync"
)

// Factory constructs a fresh Store instance by name, mirroring the
// teacher's named-backend registry pattern (see
// orchestrate/state.CheckpointStore's GetCheckpointStore/
// RegisterCheckpointStore) generalized from a singleton-instance
// registry to a factory registry, since each caller needs its own Store
// rather than sharing one global instance.
type Factory func() Store

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{
		"memory": func() Store { return NewMemoryStore() },
		"distributed": func() Store {
			return NewNotifyStore("node-0", NewBus())
		},
	}
)

// GetBackend resolves a named backend factory and constructs a Store.
func GetBackend(name string) (Store, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return factory(), nil
}

// RegisterBackend adds a named backend factory to the registry. Call
// before constructing an orchestrator configured to use it.
func RegisterBackend(name string, factory Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}
