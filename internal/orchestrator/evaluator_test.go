package orchestrator

import (
	"testing"

	"github.com/probelab/probe/internal/graph"
	"github.com/probelab/probe/pkg/models"
)

// snapshotWith builds a snapshot holding the given number of tasks per status.
func snapshotWith(counts map[models.SubTaskStatus]int) *graph.Snapshot {
	snap := &graph.Snapshot{}
	for status, n := range counts {
		for i := 0; i < n; i++ {
			snap.Tasks = append(snap.Tasks, models.SubTask{Status: status})
		}
	}
	return snap
}

func TestEvaluateConverges(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.CompletionThreshold = 0.8
	cfg.MinSubTasks = 3
	cfg.MaxSubTasks = 8
	ev := NewEvaluator(cfg)

	eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
		models.StatusCompleted: 5,
	}), 1)
	if eval.Decision != DecisionComplete {
		t.Fatalf("expected complete, got %s", eval.Decision)
	}
	if eval.Progress != 100 {
		t.Errorf("expected progress 100, got %v", eval.Progress)
	}
	if eval.CeilingReached {
		t.Error("convergence must not set the ceiling flag")
	}
}

func TestEvaluateContinuesWhileWorkInFlight(t *testing.T) {
	ev := NewEvaluator(DefaultRunConfig())

	for _, status := range []models.SubTaskStatus{models.StatusReady, models.StatusRunning} {
		eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
			models.StatusCompleted: 9,
			status:                 1,
		}), 2)
		if eval.Decision != DecisionContinue {
			t.Errorf("must not complete with a %s task, got %s", status, eval.Decision)
		}
	}
}

func TestEvaluateHonorsMinimumBreadth(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.MinSubTasks = 3
	ev := NewEvaluator(cfg)

	eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
		models.StatusCompleted: 2,
	}), 1)
	if eval.Decision != DecisionContinue {
		t.Errorf("progress 100 with 2 completed must not clear a floor of 3, got %s", eval.Decision)
	}
}

func TestEvaluateForcesCompleteAtCeiling(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.MaxSubTasks = 8
	ev := NewEvaluator(cfg)

	eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
		models.StatusCompleted: 4,
		models.StatusReady:     1,
	}), 8)
	if eval.Decision != DecisionComplete {
		t.Fatalf("expected forced complete at ceiling, got %s", eval.Decision)
	}
	if !eval.CeilingReached {
		t.Error("ceiling flag not set")
	}
}

func TestEvaluateCoveragePenalty(t *testing.T) {
	ev := NewEvaluator(DefaultRunConfig())

	// 4 completed of 4 satisfiable is 100; 4 unreachable of 8 total drags
	// the estimate down by 50.
	eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
		models.StatusCompleted: 4,
		models.StatusFailed:    1,
		models.StatusBlocked:   3,
	}), 2)
	if eval.Progress != 50 {
		t.Errorf("expected progress 50 after coverage penalty, got %v", eval.Progress)
	}
}

func TestEvaluateProgressNeverNegative(t *testing.T) {
	ev := NewEvaluator(DefaultRunConfig())

	eval := ev.Evaluate(snapshotWith(map[models.SubTaskStatus]int{
		models.StatusFailed:  1,
		models.StatusBlocked: 1,
	}), 1)
	if eval.Progress != 0 {
		t.Errorf("expected progress clamped to 0, got %v", eval.Progress)
	}
	if eval.Decision != DecisionContinue {
		t.Errorf("expected continue, got %s", eval.Decision)
	}
}

func TestEvaluateEmptyGraph(t *testing.T) {
	ev := NewEvaluator(DefaultRunConfig())
	eval := ev.Evaluate(&graph.Snapshot{}, 1)
	if eval.Progress != 0 {
		t.Errorf("empty graph progress = %v, want 0", eval.Progress)
	}
}
