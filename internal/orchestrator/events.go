package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRunStarted indicates a run has begun seeding.
	EventRunStarted EventType = "run_started"
	// EventTasksProposed indicates a decomposition round added tasks.
	EventTasksProposed EventType = "tasks_proposed"
	// EventTaskQueued indicates a task became ready for execution.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventIterationEvaluated carries the progress estimate after a pass.
	EventIterationEvaluated EventType = "iteration_evaluated"
	// EventSynthesisStarted indicates report synthesis has begun.
	EventSynthesisStarted EventType = "synthesis_started"
	// EventRunDone indicates the entire run is complete.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the orchestrator as a run progresses.
// Events feed the TUI and plain-mode progress output.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related sub-task, if applicable.
	TaskID string
	// TaskTitle is the title of the related sub-task, if applicable.
	TaskTitle string
	// Iteration is the execute/evaluate round the event belongs to.
	Iteration int
	// Progress is the aggregate progress estimate in [0,100], where known.
	Progress float64
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
