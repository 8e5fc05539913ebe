// Package decompose turns a research issue into batches of sub-task proposals.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/probelab/probe/internal/api"
	"github.com/probelab/probe/pkg/models"
)

// Decomposer proposes sub-tasks for a research issue. Implementations must be
// pure request/response calls with no side effects on the task graph.
type Decomposer interface {
	// Propose returns a batch of sub-task proposals. The seeding call
	// (iteration 0, empty completed set) should return 3-8 proposals
	// covering the issue; follow-up calls may return zero or more.
	Propose(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, iteration int) ([]models.SubTaskProposal, error)
}

// ClaudeDecomposer is a Decomposer backed by the Anthropic API.
type ClaudeDecomposer struct {
	client *api.Client
	opts   *api.CompleteOptions
}

// NewClaude creates a Claude-backed decomposer.
func NewClaude(client *api.Client, opts *api.CompleteOptions) *ClaudeDecomposer {
	return &ClaudeDecomposer{client: client, opts: opts}
}

// Propose asks Claude for the next batch of sub-task proposals.
func (d *ClaudeDecomposer) Propose(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, iteration int) ([]models.SubTaskProposal, error) {
	var prompt string
	if iteration == 0 {
		prompt = seedPrompt(issue)
	} else {
		prompt = followUpPrompt(issue, completed, iteration)
	}

	response, err := d.client.Complete(ctx, decomposerSystemPrompt, prompt, d.opts)
	if err != nil {
		return nil, fmt.Errorf("decomposer completion: %w", err)
	}

	proposals, err := ParseProposals(response)
	if err != nil {
		return nil, fmt.Errorf("parse decomposition response: %w", err)
	}

	if iteration == 0 {
		if len(proposals) < 3 || len(proposals) > 8 {
			return nil, fmt.Errorf("seed batch must contain 3-8 proposals, got %d", len(proposals))
		}
	}

	return proposals, nil
}

// proposalJSON is the JSON structure Claude returns for a single proposal.
type proposalJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DependsOn   []string `json:"depends_on"`
}

// ParseProposals extracts and validates the JSON array of proposals from a
// model response. Validation is structural only; topic coverage is a soft
// contract left to the collaborator.
func ParseProposals(response string) ([]models.SubTaskProposal, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return nil, fmt.Errorf("no JSON array found in response (got %d chars): %q", len(response), preview)
	}

	var raw []proposalJSON
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal proposals: %w", err)
	}

	proposals := make([]models.SubTaskProposal, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Title) == "" {
			return nil, fmt.Errorf("proposal %d has no title", i)
		}
		priority := models.Priority(strings.ToLower(r.Priority))
		if r.Priority != "" && !priority.Valid() {
			priority = models.PriorityMedium
		}
		proposals = append(proposals, models.SubTaskProposal{
			ID:          strings.TrimSpace(r.ID),
			Title:       strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Description),
			Priority:    priority,
			DependsOn:   cleanIDs(r.DependsOn),
		})
	}
	return proposals, nil
}

// cleanIDs trims whitespace and drops empty entries.
func cleanIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
