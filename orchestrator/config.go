package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/orchestrator/coordinator"
	"github.com/tailored-agentic-units/orchestrator/queue"
)

// Config holds initialization parameters for every subsystem, composed
// the way kernel.Config composes its agent/session/memory sections.
type Config struct {
	Coordinator coordinator.Config `json:"coordinator"`

	// QueueScanLimit bounds how many heap entries the task queue
	// inspects before giving up on an ineligible top-of-heap task.
	QueueScanLimit int `json:"queue_scan_limit,omitempty"`

	// ObserverName resolves an observer registered via
	// observability.RegisterObserver; "" keeps the SlogObserver default.
	ObserverName string `json:"observer,omitempty"`

	// MetricsEnabled turns on Prometheus collector registration for the
	// provider registry and coordinator.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for all
// subsystems.
func DefaultConfig() Config {
	return Config{
		Coordinator:    coordinator.DefaultConfig(),
		QueueScanLimit: queue.DefaultScanLimit,
		MetricsEnabled: true,
	}
}

// Merge applies non-zero values from override into c, delegating to each
// subsystem's own Merge where one exists.
func (c Config) Merge(override Config) Config {
	merged := c
	merged.Coordinator = c.Coordinator.Merge(override.Coordinator)
	if override.QueueScanLimit > 0 {
		merged.QueueScanLimit = override.QueueScanLimit
	}
	if override.ObserverName != "" {
		merged.ObserverName = override.ObserverName
	}
	if override.MetricsEnabled {
		merged.MetricsEnabled = override.MetricsEnabled
	}
	return merged
}

// LoadConfig reads a JSON config file, merges it over DefaultConfig, and
// returns the result, matching kernel.LoadConfig's read-then-merge shape.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("orchestrator: read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("orchestrator: parse config file: %w", err)
	}

	return cfg.Merge(loaded), nil
}
