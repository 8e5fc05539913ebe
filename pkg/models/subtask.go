package models

import "time"

// SubTaskStatus represents the current state of a sub-task.
type SubTaskStatus string

const (
	// StatusPending indicates the sub-task is waiting on dependencies.
	StatusPending SubTaskStatus = "pending"
	// StatusReady indicates every dependency is completed and the sub-task can run.
	StatusReady SubTaskStatus = "ready"
	// StatusRunning indicates a researcher is executing the sub-task.
	StatusRunning SubTaskStatus = "running"
	// StatusCompleted indicates the sub-task finished with a result attached.
	StatusCompleted SubTaskStatus = "completed"
	// StatusFailed indicates the sub-task failed; the reason is recorded.
	StatusFailed SubTaskStatus = "failed"
	// StatusBlocked indicates a dependency failed, so the sub-task can never run.
	StatusBlocked SubTaskStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s SubTaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusRunning, StatusCompleted, StatusFailed, StatusBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that never change once set.
func (s SubTaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubTask is one atomic unit of research work. Sub-tasks are owned exclusively
// by the task graph; status moves only through its transition operations.
type SubTask struct {
	// ID is the unique identifier, stable for the run.
	ID string `json:"id"`
	// Title is the short description of the sub-task.
	Title string `json:"title"`
	// Description explains what the sub-task should investigate.
	Description string `json:"description,omitempty"`
	// Priority controls scheduling order among ready sub-tasks.
	Priority Priority `json:"priority"`
	// DependsOn lists sub-task IDs that must complete before this one runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Status is the current state of the sub-task.
	Status SubTaskStatus `json:"status"`
	// ProposedBy identifies who injected the sub-task: the decomposer or
	// the ID of a completed sub-task whose result proposed it.
	ProposedBy string `json:"proposed_by,omitempty"`
	// Result is attached exactly once when the sub-task completes.
	Result *SubTaskResult `json:"result,omitempty"`
	// FailureReason records why the sub-task failed, if it did.
	FailureReason string `json:"failure_reason,omitempty"`
	// CreatedAt is when the sub-task entered the graph.
	CreatedAt time.Time `json:"created_at"`
}

// SubTaskProposal is a candidate sub-task submitted to the task graph.
// The graph validates dependencies and may reject the proposal.
type SubTaskProposal struct {
	// ID is optional; the graph assigns one when empty. Proposals within a
	// batch may reference each other's IDs as dependencies.
	ID string `json:"id,omitempty"`
	// Title is the short description of the proposed work.
	Title string `json:"title"`
	// Description explains what the proposed sub-task should investigate.
	Description string `json:"description,omitempty"`
	// Priority controls scheduling order; defaults to medium when empty.
	Priority Priority `json:"priority,omitempty"`
	// DependsOn lists IDs already in the graph or within the same batch.
	DependsOn []string `json:"depends_on,omitempty"`
}
