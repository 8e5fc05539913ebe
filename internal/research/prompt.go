package research

import (
	"fmt"
	"strings"

	"github.com/probelab/probe/pkg/models"
)

const researcherSystemPrompt = `You are a focused research agent. You are given one narrow research sub-task
from a larger investigation. Research it thoroughly and report your findings
as structured JSON.

Be honest about uncertainty. A low-confidence result with accurate caveats is
worth more than a confident guess. Only propose additional sub-tasks when you
uncovered a genuine gap that blocks a complete answer.`

const researchPromptTemplate = `Research this sub-task:

Title: %s
Description: %s

Broader investigation context (for scoping only, do not answer it directly):
%s

Respond with a single JSON object:
{
  "conclusion": "direct answer to the sub-task, 1-3 paragraphs",
  "evidence": ["supporting finding", ...],
  "sources": [
    {
      "type": "web|document|dataset|expert",
      "title": "source title",
      "url": "if applicable",
      "author": "if known",
      "date": "if known",
      "relevance": 0.9,
      "credibility": 0.8,
      "excerpt": "short supporting quote"
    }
  ],
  "confidence": 0.85,
  "additional_tasks": [
    {
      "title": "follow-up sub-task title",
      "description": "what it should investigate and why the gap matters",
      "priority": "high|medium|low",
      "depends_on": []
    }
  ]
}

Rules:
- Stay inside the sub-task scope. Do not answer the broader issue.
- confidence, relevance and credibility are in [0, 1].
- additional_tasks may be empty. Propose at most 2.
- Output only the JSON object.`

func researchPrompt(task *models.SubTask, issue *models.ResearchIssue) string {
	var ctx strings.Builder
	fmt.Fprintf(&ctx, "Issue: %s\n", issue.Title)
	if issue.Description != "" {
		fmt.Fprintf(&ctx, "%s\n", issue.Description)
	}
	if len(issue.Constraints) > 0 {
		fmt.Fprintf(&ctx, "Constraints: %s\n", strings.Join(issue.Constraints, "; "))
	}
	return fmt.Sprintf(researchPromptTemplate, task.Title, task.Description, ctx.String())
}
