// Package synthesis turns completed sub-task results into a final report.
package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/probelab/probe/internal/api"
	"github.com/probelab/probe/pkg/models"
)

// Synthesizer writes the final report from the completed results of a run.
type Synthesizer interface {
	Synthesize(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, meta *models.ExecutionMetadata) (*models.Report, error)
}

// ClaudeSynthesizer is a Synthesizer backed by the Anthropic API.
type ClaudeSynthesizer struct {
	client *api.Client
	opts   *api.CompleteOptions
}

// NewClaude creates a Claude-backed synthesizer.
func NewClaude(client *api.Client, opts *api.CompleteOptions) *ClaudeSynthesizer {
	return &ClaudeSynthesizer{client: client, opts: opts}
}

// Synthesize produces the report body from the run's completed results. The
// limitations section is built locally from execution metadata so disclosure
// does not depend on the model remembering to include it.
func (s *ClaudeSynthesizer) Synthesize(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, meta *models.ExecutionMetadata) (*models.Report, error) {
	if len(completed) == 0 {
		return &models.Report{
			Title:       issue.Title,
			Body:        "No sub-tasks completed; there are no findings to report.",
			Limitations: limitations(meta, 0),
			GeneratedAt: time.Now(),
		}, nil
	}

	prompt := synthesisPrompt(issue, completed)

	body, err := s.client.Complete(ctx, synthesizerSystemPrompt, prompt, s.opts)
	if err != nil {
		return nil, fmt.Errorf("synthesizer completion: %w", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("synthesizer returned empty report")
	}

	return &models.Report{
		Title:       issue.Title,
		Body:        body,
		Limitations: limitations(meta, len(completed)),
		GeneratedAt: time.Now(),
	}, nil
}

func limitations(meta *models.ExecutionMetadata, completed int) []string {
	var out []string
	if meta == nil {
		return out
	}
	if meta.CeilingReached {
		out = append(out, fmt.Sprintf("Run stopped at the iteration ceiling (%d iterations); some avenues may be unexplored.", meta.Iterations))
	}
	if meta.Stalled {
		out = append(out, "Run stalled: remaining sub-tasks could not become executable.")
	}
	if skipped := meta.TotalSubTasks - completed; skipped > 0 {
		out = append(out, fmt.Sprintf("%d of %d sub-tasks did not complete; their findings are missing from this report.", skipped, meta.TotalSubTasks))
	}
	return out
}

// maxKeyInsights caps the insight list in a run summary.
const maxKeyInsights = 5

// BuildSummary derives the compact run record from the final graph counts and
// completed results. Key insights are the highest-confidence conclusions;
// confidence level is the mean across completed results.
func BuildSummary(runID string, counts map[models.SubTaskStatus]int, progress float64, completed []models.SubTaskResult, meta *models.ExecutionMetadata) *models.RunSummary {
	total := 0
	for _, n := range counts {
		total += n
	}

	summary := &models.RunSummary{
		RunID:           runID,
		TotalSubTasks:   total,
		SuccessfulTasks: counts[models.StatusCompleted],
		FailedTasks:     counts[models.StatusFailed],
		BlockedTasks:    counts[models.StatusBlocked],
		Progress:        progress,
	}
	if meta != nil {
		summary.CeilingReached = meta.CeilingReached
		summary.Stalled = meta.Stalled
	}
	if len(completed) == 0 {
		return summary
	}

	ranked := make([]models.SubTaskResult, len(completed))
	copy(ranked, completed)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	var sum float64
	for _, r := range completed {
		sum += r.Confidence
	}
	summary.ConfidenceLevel = sum / float64(len(completed))

	for i := 0; i < len(ranked) && i < maxKeyInsights; i++ {
		summary.KeyInsights = append(summary.KeyInsights, ranked[i].Conclusion)
	}
	return summary
}
