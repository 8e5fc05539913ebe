package decompose

import (
	"fmt"
	"strings"

	"github.com/probelab/probe/pkg/models"
)

// decomposerSystemPrompt frames the decomposer collaborator's role.
const decomposerSystemPrompt = `You are a research planner. You break open-ended research questions into small, independent sub-investigations that together cover the question completely, with explicit dependencies where one sub-investigation needs another's findings first.`

// seedPromptTemplate asks for the initial MECE-style batch.
const seedPromptTemplate = `Break this research issue into 3-8 sub-tasks that together cover it completely without overlapping (mutually exclusive, collectively exhaustive).

Research issue:
%s

Return ONLY a JSON array with this exact structure (no other text):
[
  {
    "id": "short-stable-id",
    "title": "Short sub-task title",
    "description": "What this sub-task should find out and how to judge the answer",
    "priority": "high|medium|low",
    "depends_on": ["id of another sub-task in this list"]
  }
]

Rules:
- Each sub-task must be answerable on its own with focused research.
- Use depends_on ONLY when a sub-task genuinely needs another's findings first.
- Dependencies must reference ids within this list and must not form cycles.
- Prefer independent sub-tasks; they run in parallel.`

// followUpPromptTemplate asks whether completed findings expose gaps.
const followUpPromptTemplate = `You are partway through a research investigation (round %d). Review the findings so far and propose ONLY sub-tasks that fill genuine gaps. An empty array is a good answer when coverage is sufficient.

Research issue:
%s

Findings so far:
%s

Return ONLY a JSON array in the same structure as before:
[
  {"id": "...", "title": "...", "description": "...", "priority": "high|medium|low", "depends_on": []}
]`

// seedPrompt renders the initial decomposition prompt.
func seedPrompt(issue *models.ResearchIssue) string {
	return fmt.Sprintf(seedPromptTemplate, formatIssue(issue))
}

// followUpPrompt renders the gap-filling prompt for later rounds.
func followUpPrompt(issue *models.ResearchIssue, completed []models.SubTaskResult, iteration int) string {
	return fmt.Sprintf(followUpPromptTemplate, iteration, formatIssue(issue), formatFindings(completed))
}

// formatIssue renders a research issue for prompt inclusion.
func formatIssue(issue *models.ResearchIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", issue.Title)
	fmt.Fprintf(&b, "Description: %s\n", issue.Description)
	if len(issue.Objectives) > 0 {
		b.WriteString("Objectives:\n")
		for i, obj := range issue.Objectives {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, obj)
		}
	}
	if issue.Scope != "" {
		fmt.Fprintf(&b, "Scope: %s\n", issue.Scope)
	}
	if len(issue.Constraints) > 0 {
		fmt.Fprintf(&b, "Constraints: %s\n", strings.Join(issue.Constraints, "; "))
	}
	return b.String()
}

// formatFindings renders completed results as a compact findings digest.
func formatFindings(completed []models.SubTaskResult) string {
	if len(completed) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for i, r := range completed {
		fmt.Fprintf(&b, "%d. [confidence %.2f] %s\n", i+1, r.Confidence, r.Conclusion)
	}
	return b.String()
}
