// Package models defines the core data types shared across the engine.
package models

// Priority indicates how urgently a sub-task should be scheduled.
type Priority string

const (
	// PriorityHigh schedules before medium and low.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default scheduling priority.
	PriorityMedium Priority = "medium"
	// PriorityLow schedules after high and medium.
	PriorityLow Priority = "low"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the scheduling rank of the priority; lower ranks schedule first.
// Unknown priorities rank after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ResearchIssue is the immutable input to a research run.
// It is created once at run start and never mutated.
type ResearchIssue struct {
	// Title is the short name of the investigation.
	Title string `json:"title"`
	// Description explains what the investigation should find out.
	Description string `json:"description"`
	// Objectives is the ordered list of concrete questions to answer.
	Objectives []string `json:"objectives,omitempty"`
	// Scope bounds the investigation (markets, timeframes, populations).
	Scope string `json:"scope,omitempty"`
	// Constraints lists restrictions the research must respect.
	Constraints []string `json:"constraints,omitempty"`
	// Tags categorize the issue for later retrieval.
	Tags []string `json:"tags,omitempty"`
	// Priority is the overall priority of the investigation.
	Priority Priority `json:"priority,omitempty"`
}
