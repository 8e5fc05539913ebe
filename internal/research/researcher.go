// Package research executes individual sub-tasks against an external
// researcher collaborator.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/probelab/probe/internal/api"
	"github.com/probelab/probe/pkg/models"
)

// Researcher executes one sub-task and returns its result. Implementations
// must be safe to call concurrently for distinct sub-tasks. Retry policy, if
// any, belongs to the implementation, not the caller.
type Researcher interface {
	Execute(ctx context.Context, task *models.SubTask, issue *models.ResearchIssue) (*models.SubTaskResult, error)
}

// ClaudeResearcher is a Researcher backed by the Anthropic API.
type ClaudeResearcher struct {
	client *api.Client
	opts   *api.CompleteOptions
}

// NewClaude creates a Claude-backed researcher.
func NewClaude(client *api.Client, opts *api.CompleteOptions) *ClaudeResearcher {
	return &ClaudeResearcher{client: client, opts: opts}
}

// Execute researches one sub-task and parses the structured result.
func (r *ClaudeResearcher) Execute(ctx context.Context, task *models.SubTask, issue *models.ResearchIssue) (*models.SubTaskResult, error) {
	prompt := researchPrompt(task, issue)

	response, err := r.client.Complete(ctx, researcherSystemPrompt, prompt, r.opts)
	if err != nil {
		return nil, fmt.Errorf("researcher completion: %w", err)
	}

	result, err := ParseResult(response)
	if err != nil {
		return nil, fmt.Errorf("parse research result: %w", err)
	}
	return result, nil
}

// resultJSON is the JSON structure Claude returns for a completed sub-task.
type resultJSON struct {
	Conclusion string   `json:"conclusion"`
	Evidence   []string `json:"evidence"`
	Sources    []struct {
		Type        string  `json:"type"`
		Title       string  `json:"title"`
		URL         string  `json:"url"`
		Author      string  `json:"author"`
		Date        string  `json:"date"`
		Relevance   float64 `json:"relevance"`
		Credibility float64 `json:"credibility"`
		Excerpt     string  `json:"excerpt"`
	} `json:"sources"`
	Confidence      float64                  `json:"confidence"`
	AdditionalTasks []models.SubTaskProposal `json:"additional_tasks"`
}

// ParseResult extracts and normalizes the JSON result object from a model
// response. Scores are clamped to [0,1]; the completion timestamp is stamped
// here, making the result immutable from this point on.
func ParseResult(response string) (*models.SubTaskResult, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON object found in response (got %d chars): %q", len(response), preview)
	}

	var raw resultJSON
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	if strings.TrimSpace(raw.Conclusion) == "" {
		return nil, fmt.Errorf("result has no conclusion")
	}

	result := &models.SubTaskResult{
		Conclusion:      strings.TrimSpace(raw.Conclusion),
		Evidence:        raw.Evidence,
		Confidence:      models.Clamp01(raw.Confidence),
		AdditionalTasks: raw.AdditionalTasks,
		CompletedAt:     time.Now(),
	}

	for _, s := range raw.Sources {
		result.Sources = append(result.Sources, models.Source{
			Type:        models.SourceType(strings.ToLower(s.Type)),
			Title:       s.Title,
			URL:         s.URL,
			Author:      s.Author,
			Date:        s.Date,
			Relevance:   models.Clamp01(s.Relevance),
			Credibility: models.Clamp01(s.Credibility),
			Excerpt:     s.Excerpt,
		})
	}

	return result, nil
}
