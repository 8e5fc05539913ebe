package orchestrator

import (
	"github.com/probelab/probe/internal/graph"
	"github.com/probelab/probe/pkg/models"
)

// Decision is the evaluator's verdict for one iteration.
type Decision string

const (
	// DecisionContinue means the run should execute another pass.
	DecisionContinue Decision = "continue"
	// DecisionComplete means the run has converged or was forced to stop.
	DecisionComplete Decision = "complete"
)

// Evaluation is the result of scoring the graph after a pass.
type Evaluation struct {
	// Decision is continue or complete.
	Decision Decision
	// Progress is the aggregate progress estimate in [0,100].
	Progress float64
	// CeilingReached is set when completion was forced at the iteration
	// ceiling rather than earned by convergence.
	CeilingReached bool
}

// ConvergenceEvaluator decides continue vs complete from a graph snapshot.
type ConvergenceEvaluator struct {
	cfg RunConfig
}

// NewEvaluator creates an evaluator for the given run configuration.
func NewEvaluator(cfg RunConfig) *ConvergenceEvaluator {
	return &ConvergenceEvaluator{cfg: cfg}
}

// Evaluate scores the snapshot after the given iteration.
//
// Progress is the completed share of still-satisfiable tasks, minus a coverage
// penalty for the unreachable ones: failed and blocked tasks leave the
// denominator once known-dead, but each drags the estimate down by its share
// of the whole graph. The run completes when progress clears the threshold
// with no work in flight and at least MinSubTasks tasks completed, or
// unconditionally once iteration hits the MaxSubTasks ceiling.
func (e *ConvergenceEvaluator) Evaluate(snap *graph.Snapshot, iteration int) Evaluation {
	counts := snap.Counts()
	completed := counts[models.StatusCompleted]
	satisfiable := completed + counts[models.StatusPending] + counts[models.StatusReady] + counts[models.StatusRunning]
	unreachable := counts[models.StatusFailed] + counts[models.StatusBlocked]
	total := satisfiable + unreachable

	progress := 100 * float64(completed) / float64(max(1, satisfiable))
	if total > 0 {
		progress -= 100 * float64(unreachable) / float64(total)
	}
	if progress < 0 {
		progress = 0
	}

	if iteration >= e.cfg.MaxSubTasks {
		return Evaluation{Decision: DecisionComplete, Progress: progress, CeilingReached: true}
	}

	threshold := e.cfg.CompletionThreshold * 100
	inFlight := counts[models.StatusReady] + counts[models.StatusRunning]
	if progress >= threshold && inFlight == 0 && completed >= e.cfg.MinSubTasks {
		return Evaluation{Decision: DecisionComplete, Progress: progress}
	}
	return Evaluation{Decision: DecisionContinue, Progress: progress}
}
