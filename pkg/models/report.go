package models

import "time"

// ExecutionMetadata describes how a run executed, for disclosure in the report.
type ExecutionMetadata struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the run finished.
	CompletedAt time.Time `json:"completed_at"`
	// TotalExecutionTime is the wall-clock duration of the run.
	TotalExecutionTime time.Duration `json:"total_execution_time"`
	// TotalSubTasks is the number of sub-tasks the graph ended with.
	TotalSubTasks int `json:"total_sub_tasks"`
	// Iterations is the number of execute/evaluate rounds the run took.
	Iterations int `json:"iterations"`
	// CeilingReached is set when the run was forced complete at the
	// iteration ceiling rather than by convergence.
	CeilingReached bool `json:"ceiling_reached,omitempty"`
	// Stalled is set when the run was forced complete because no sub-task
	// could ever become ready again.
	Stalled bool `json:"stalled,omitempty"`
}

// Report is the synthesized output of a completed research run.
type Report struct {
	// Title names the report, usually after the issue.
	Title string `json:"title"`
	// Body is the full synthesized report text.
	Body string `json:"body"`
	// Limitations discloses stalls, ceilings, and failed sub-tasks.
	Limitations []string `json:"limitations,omitempty"`
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// RunSummary is the compact per-run record returned alongside the report.
type RunSummary struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// TotalSubTasks is the number of sub-tasks the graph ended with.
	TotalSubTasks int `json:"total_sub_tasks"`
	// SuccessfulTasks is the number of sub-tasks that completed.
	SuccessfulTasks int `json:"successful_tasks"`
	// FailedTasks is the number of sub-tasks that failed.
	FailedTasks int `json:"failed_tasks"`
	// BlockedTasks is the number of sub-tasks left permanently unreachable.
	BlockedTasks int `json:"blocked_tasks"`
	// Progress is the final aggregate progress estimate, in [0,100].
	Progress float64 `json:"progress"`
	// KeyInsights lists the highest-confidence conclusions.
	KeyInsights []string `json:"key_insights,omitempty"`
	// ConfidenceLevel is the mean confidence across completed results, in [0,1].
	ConfidenceLevel float64 `json:"confidence_level"`
	// CeilingReached mirrors ExecutionMetadata.CeilingReached.
	CeilingReached bool `json:"ceiling_reached,omitempty"`
	// Stalled mirrors ExecutionMetadata.Stalled.
	Stalled bool `json:"stalled,omitempty"`
}
