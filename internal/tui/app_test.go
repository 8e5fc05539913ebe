package tui

import (
	"strings"
	"testing"

	"github.com/probelab/probe/internal/orchestrator"
	"github.com/probelab/probe/pkg/models"
)

func TestApplyTracksTaskLifecycle(t *testing.T) {
	a := New("test issue", nil)

	a.apply(orchestrator.Event{Type: orchestrator.EventTaskQueued, TaskID: "t1", TaskTitle: "First task", Iteration: 1})
	a.apply(orchestrator.Event{Type: orchestrator.EventTaskStarted, TaskID: "t1", TaskTitle: "First task", Iteration: 1})

	if len(a.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(a.rows))
	}
	if a.rows[0].status != models.StatusRunning {
		t.Errorf("row status = %s, want running", a.rows[0].status)
	}

	a.apply(orchestrator.Event{Type: orchestrator.EventTaskCompleted, TaskID: "t1", TaskTitle: "First task", Iteration: 1})
	if a.rows[0].status != models.StatusCompleted {
		t.Errorf("row status = %s, want completed", a.rows[0].status)
	}
	if len(a.rows) != 1 {
		t.Errorf("lifecycle events must not duplicate rows, got %d", len(a.rows))
	}
}

func TestApplyEvaluationUpdatesProgress(t *testing.T) {
	a := New("test issue", nil)
	a.apply(orchestrator.Event{Type: orchestrator.EventIterationEvaluated, Iteration: 2, Progress: 62.5, Message: "continue"})

	if a.progress != 62.5 {
		t.Errorf("progress = %v, want 62.5", a.progress)
	}
	if a.iteration != 2 {
		t.Errorf("iteration = %d, want 2", a.iteration)
	}
}

func TestApplyCapsEventFeed(t *testing.T) {
	a := New("test issue", nil)
	for i := 0; i < maxLogLines+4; i++ {
		a.apply(orchestrator.Event{Type: orchestrator.EventTasksProposed, Message: "batch"})
	}
	if len(a.logs) != maxLogLines {
		t.Errorf("log feed length = %d, want %d", len(a.logs), maxLogLines)
	}
}

func TestViewShowsTasksAndFinalMessage(t *testing.T) {
	a := New("graph databases", nil)
	a.apply(orchestrator.Event{Type: orchestrator.EventTaskQueued, TaskID: "t1", TaskTitle: "Survey the landscape", Iteration: 1})
	a.apply(orchestrator.Event{Type: orchestrator.EventTaskCompleted, TaskID: "t1", TaskTitle: "Survey the landscape", Iteration: 1})
	a.apply(orchestrator.Event{Type: orchestrator.EventRunDone, Progress: 100, Message: "1/1 sub-tasks completed"})

	view := a.View()
	for _, want := range []string{"graph databases", "Survey the landscape", "1/1 sub-tasks completed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
