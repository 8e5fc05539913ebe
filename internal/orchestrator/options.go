package orchestrator

import (
	"github.com/probelab/probe/internal/decompose"
	"github.com/probelab/probe/internal/research"
	"github.com/probelab/probe/internal/synthesis"
)

// Collaborators contains the external collaborators a run needs.
// All fields are required.
type Collaborators struct {
	// Decomposer proposes sub-task batches.
	Decomposer decompose.Decomposer
	// Researcher executes individual sub-tasks.
	Researcher research.Researcher
	// Synthesizer writes the final report.
	Synthesizer synthesis.Synthesizer
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	eventBuffer int
	pauseCtrl   *PauseController
	debugLog    func(format string, args ...interface{})
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *orchestratorOptions) { o.eventBuffer = n }
}

// WithPauseController sets a shared pause controller, letting run-control
// signals gate dispatch between passes.
func WithPauseController(p *PauseController) Option {
	return func(o *orchestratorOptions) { o.pauseCtrl = p }
}

// WithDebugLog sets a debug log function forwarded to the task graph.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(o *orchestratorOptions) { o.debugLog = fn }
}
