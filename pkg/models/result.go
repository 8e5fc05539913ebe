package models

import "time"

// SourceType categorizes where a piece of evidence came from.
type SourceType string

const (
	SourceTypeWeb      SourceType = "web"
	SourceTypeDocument SourceType = "document"
	SourceTypeDataset  SourceType = "dataset"
	SourceTypeExpert   SourceType = "expert"
)

// Source records one reference a sub-task result is grounded on.
type Source struct {
	// Type is the kind of source (web, document, dataset, expert).
	Type SourceType `json:"type"`
	// Title names the source.
	Title string `json:"title"`
	// URL locates the source, if it has one.
	URL string `json:"url,omitempty"`
	// Author names the source's author, if known.
	Author string `json:"author,omitempty"`
	// Date is the source's publication date, if known.
	Date string `json:"date,omitempty"`
	// Relevance scores how relevant the source is to the sub-task, in [0,1].
	Relevance float64 `json:"relevance"`
	// Credibility scores how trustworthy the source is, in [0,1].
	Credibility float64 `json:"credibility"`
	// Excerpt quotes the part of the source the conclusion relies on.
	Excerpt string `json:"excerpt,omitempty"`
}

// SubTaskResult is produced exactly once per successfully completed sub-task
// and is immutable once attached.
type SubTaskResult struct {
	// Conclusion is the answer the sub-task arrived at.
	Conclusion string `json:"conclusion"`
	// Evidence is the ordered list of supporting statements.
	Evidence []string `json:"evidence,omitempty"`
	// Sources lists the references the conclusion is grounded on.
	Sources []Source `json:"sources,omitempty"`
	// Confidence scores how certain the researcher is, in [0,1].
	Confidence float64 `json:"confidence"`
	// AdditionalTasks proposes follow-up sub-tasks surfaced by this result.
	AdditionalTasks []SubTaskProposal `json:"additional_tasks,omitempty"`
	// CompletedAt is when the result was produced.
	CompletedAt time.Time `json:"completed_at"`
}

// Clamp01 bounds v to the [0,1] range used by relevance, credibility,
// and confidence scores.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
