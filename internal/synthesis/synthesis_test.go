package synthesis

import (
	"strings"
	"testing"
	"time"

	"github.com/probelab/probe/pkg/models"
)

func resultWith(conclusion string, confidence float64) models.SubTaskResult {
	return models.SubTaskResult{
		Conclusion:  conclusion,
		Confidence:  confidence,
		CompletedAt: time.Now(),
	}
}

func TestBuildSummaryRanksInsightsByConfidence(t *testing.T) {
	completed := []models.SubTaskResult{
		resultWith("middling finding", 0.5),
		resultWith("strong finding", 0.9),
		resultWith("weak finding", 0.2),
	}
	counts := map[models.SubTaskStatus]int{
		models.StatusCompleted: 3,
		models.StatusFailed:    1,
	}

	summary := BuildSummary("run-1", counts, 75.0, completed, nil)

	if summary.TotalSubTasks != 4 {
		t.Errorf("expected 4 total sub-tasks, got %d", summary.TotalSubTasks)
	}
	if summary.SuccessfulTasks != 3 || summary.FailedTasks != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if len(summary.KeyInsights) != 3 {
		t.Fatalf("expected 3 insights, got %d", len(summary.KeyInsights))
	}
	if summary.KeyInsights[0] != "strong finding" {
		t.Errorf("insights not ranked by confidence: %v", summary.KeyInsights)
	}
	want := (0.5 + 0.9 + 0.2) / 3
	if diff := summary.ConfidenceLevel - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence level = %v, want %v", summary.ConfidenceLevel, want)
	}
}

func TestBuildSummaryCapsInsights(t *testing.T) {
	var completed []models.SubTaskResult
	for i := 0; i < 8; i++ {
		completed = append(completed, resultWith("finding", 0.5))
	}
	summary := BuildSummary("run-2", map[models.SubTaskStatus]int{models.StatusCompleted: 8}, 100, completed, nil)
	if len(summary.KeyInsights) != maxKeyInsights {
		t.Errorf("expected %d insights, got %d", maxKeyInsights, len(summary.KeyInsights))
	}
}

func TestBuildSummaryEmptyRun(t *testing.T) {
	meta := &models.ExecutionMetadata{Stalled: true}
	summary := BuildSummary("run-3", map[models.SubTaskStatus]int{models.StatusBlocked: 2}, 0, nil, meta)
	if summary.ConfidenceLevel != 0 {
		t.Errorf("expected zero confidence for empty run, got %v", summary.ConfidenceLevel)
	}
	if len(summary.KeyInsights) != 0 {
		t.Errorf("expected no insights, got %v", summary.KeyInsights)
	}
	if !summary.Stalled {
		t.Error("stall flag not carried onto summary")
	}
}

func TestLimitationsDiscloseFlags(t *testing.T) {
	meta := &models.ExecutionMetadata{
		TotalSubTasks:  6,
		Iterations:     10,
		CeilingReached: true,
		Stalled:        true,
	}
	lims := limitations(meta, 4)
	if len(lims) != 3 {
		t.Fatalf("expected 3 limitations, got %d: %v", len(lims), lims)
	}
	joined := strings.Join(lims, "\n")
	for _, want := range []string{"iteration ceiling", "stalled", "2 of 6"} {
		if !strings.Contains(joined, want) {
			t.Errorf("limitations missing %q: %v", want, lims)
		}
	}
}

func TestSynthesisPromptIncludesFindings(t *testing.T) {
	issue := &models.ResearchIssue{
		Title:      "Database selection",
		Objectives: []string{"Pick a primary store"},
	}
	completed := []models.SubTaskResult{
		{
			Conclusion: "Postgres fits the workload.",
			Evidence:   []string{"mature replication"},
			Sources:    []models.Source{{Type: models.SourceTypeWeb, Title: "PG docs", Credibility: 0.9}},
			Confidence: 0.8,
		},
	}
	prompt := synthesisPrompt(issue, completed)
	for _, want := range []string{"Database selection", "Pick a primary store", "Postgres fits the workload.", "mature replication", "PG docs"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

var _ Synthesizer = (*ClaudeSynthesizer)(nil)
