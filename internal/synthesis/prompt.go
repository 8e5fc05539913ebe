package synthesis

import (
	"fmt"
	"strings"

	"github.com/probelab/probe/pkg/models"
)

const synthesizerSystemPrompt = `You are a research report writer. You receive the findings of a completed
multi-part investigation and write the final report.

Synthesize across findings rather than summarizing each one in turn. Resolve
agreements and tensions between findings explicitly. Attribute claims to their
sources where sources were given. Keep the register factual.`

const synthesisPromptTemplate = `Write the final report for this research issue.

Issue: %s
%s
Objectives:
%s

Findings (one per completed sub-task):
%s

Structure the report with a short executive summary, a body organized by theme
(not by sub-task), and a conclusion that answers the issue directly. Use
Markdown. Output only the report.`

func synthesisPrompt(issue *models.ResearchIssue, completed []models.SubTaskResult) string {
	var objectives strings.Builder
	for _, o := range issue.Objectives {
		fmt.Fprintf(&objectives, "- %s\n", o)
	}
	if objectives.Len() == 0 {
		objectives.WriteString("- (none stated)\n")
	}

	var findings strings.Builder
	for i, r := range completed {
		fmt.Fprintf(&findings, "### Finding %d (confidence %.2f)\n%s\n", i+1, r.Confidence, r.Conclusion)
		for _, e := range r.Evidence {
			fmt.Fprintf(&findings, "- %s\n", e)
		}
		for _, s := range r.Sources {
			fmt.Fprintf(&findings, "- Source: %s (%s, credibility %.2f)\n", s.Title, s.Type, s.Credibility)
		}
		findings.WriteString("\n")
	}

	desc := ""
	if issue.Description != "" {
		desc = issue.Description + "\n"
	}
	return fmt.Sprintf(synthesisPromptTemplate, issue.Title, desc, objectives.String(), findings.String())
}
