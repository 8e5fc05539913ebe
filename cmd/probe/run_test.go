package main

import (
	"strings"
	"testing"
)

func TestBuildIssue(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		wantTitle string
	}{
		{
			name:      "single line becomes title",
			question:  "Why did churn spike in Q3?",
			wantTitle: "Why did churn spike in Q3?",
		},
		{
			name:      "first line of multi-line text becomes title",
			question:  "Why did churn spike in Q3?\nFocus on enterprise accounts.",
			wantTitle: "Why did churn spike in Q3?",
		},
		{
			name:      "surrounding whitespace trimmed from title",
			question:  "  compare vector databases  \nmore detail",
			wantTitle: "compare vector databases",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := buildIssue(tt.question)
			if issue.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", issue.Title, tt.wantTitle)
			}
			if issue.Description != tt.question {
				t.Errorf("description = %q, want full question", issue.Description)
			}
		})
	}
}

func TestBuildIssueTruncatesLongTitle(t *testing.T) {
	question := strings.Repeat("x", 250)
	issue := buildIssue(question)

	if len(issue.Title) != 100 {
		t.Errorf("title length = %d, want 100", len(issue.Title))
	}
	if !strings.HasSuffix(issue.Title, "...") {
		t.Errorf("truncated title should end with ellipsis, got %q", issue.Title)
	}
	if issue.Description != question {
		t.Error("description should keep the full question")
	}
}
