// Package orchestrator drives a research run: seed decomposition, iterative
// execution of ready sub-tasks, convergence evaluation, and final synthesis.
package orchestrator

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid RunConfig. It is the only error class
// that aborts a run before any work begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// RunConfig contains runtime configuration that is immutable after
// construction. One RunConfig governs exactly one orchestration run.
type RunConfig struct {
	// Model selects the collaborator model; opaque to the engine.
	Model string
	// Temperature is passed through to the collaborators; opaque to the engine.
	Temperature float64
	// MaxSubTasks bounds the run: the iteration ceiling that forces completion.
	MaxSubTasks int
	// MinSubTasks is the minimum number of completed sub-tasks before the run
	// may converge.
	MinSubTasks int
	// CompletionThreshold is the convergence threshold in [0,1], scaled to a
	// percentage internally.
	CompletionThreshold float64
	// ConcurrencyLimit caps concurrent researcher invocations per pass.
	ConcurrencyLimit int
	// PerTaskTimeout bounds a single researcher invocation. Independent of
	// run-level cancellation.
	PerTaskTimeout time.Duration
}

// DefaultRunConfig returns the standard-depth configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxSubTasks:         12,
		MinSubTasks:         3,
		CompletionThreshold: 0.8,
		ConcurrencyLimit:    3,
		PerTaskTimeout:      5 * time.Minute,
	}
}

// Validate checks the configuration before any work starts.
func (c *RunConfig) Validate() error {
	if c.MinSubTasks < 0 {
		return &ConfigurationError{Field: "MinSubTasks", Reason: "must be non-negative"}
	}
	if c.MaxSubTasks <= 0 {
		return &ConfigurationError{Field: "MaxSubTasks", Reason: "must be positive"}
	}
	if c.MinSubTasks > c.MaxSubTasks {
		return &ConfigurationError{Field: "MinSubTasks", Reason: fmt.Sprintf("(%d) exceeds MaxSubTasks (%d)", c.MinSubTasks, c.MaxSubTasks)}
	}
	if c.CompletionThreshold < 0 || c.CompletionThreshold > 1 {
		return &ConfigurationError{Field: "CompletionThreshold", Reason: "must be in [0,1]"}
	}
	if c.ConcurrencyLimit <= 0 {
		return &ConfigurationError{Field: "ConcurrencyLimit", Reason: "must be positive"}
	}
	if c.PerTaskTimeout <= 0 {
		return &ConfigurationError{Field: "PerTaskTimeout", Reason: "must be positive"}
	}
	return nil
}
