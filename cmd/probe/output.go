package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/probelab/probe/internal/api"
	"github.com/probelab/probe/internal/orchestrator"
)

// renderPlainEvents streams run events as colored log lines until the
// orchestrator closes the channel.
func renderPlainEvents(events <-chan orchestrator.Event) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for event := range events {
		switch event.Type {
		case orchestrator.EventRunStarted:
			cyan.Printf("▸ %s\n", event.Message)
		case orchestrator.EventTasksProposed:
			fmt.Printf("  %s\n", event.Message)
		case orchestrator.EventTaskStarted:
			yellow.Printf("  ● %s\n", event.TaskTitle)
		case orchestrator.EventTaskCompleted:
			green.Printf("  ✓ %s\n", event.TaskTitle)
		case orchestrator.EventTaskFailed:
			red.Printf("  ✗ %s: %v\n", event.TaskTitle, event.Error)
		case orchestrator.EventIterationEvaluated:
			cyan.Printf("▸ pass %d: %.0f%% complete\n", event.Iteration, event.Progress)
		case orchestrator.EventSynthesisStarted:
			cyan.Println("▸ synthesizing report...")
		case orchestrator.EventRunDone:
			green.Printf("▸ %s\n", event.Message)
		}
	}
}

// printOutcome writes the synthesized report and the run summary to stdout.
func printOutcome(outcome *orchestrator.RunOutcome) {
	report := outcome.Report
	summary := outcome.Summary

	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(report.Title)
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(report.Body)

	if len(report.Limitations) > 0 {
		yellow := color.New(color.FgYellow)
		fmt.Println()
		yellow.Println("Limitations:")
		for _, line := range report.Limitations {
			fmt.Printf("  - %s\n", line)
		}
	}

	fmt.Println()
	fmt.Printf("Run %s: %d/%d sub-tasks completed", summary.RunID, summary.SuccessfulTasks, summary.TotalSubTasks)
	if summary.FailedTasks > 0 {
		fmt.Printf(", %d failed", summary.FailedTasks)
	}
	if summary.BlockedTasks > 0 {
		fmt.Printf(", %d blocked", summary.BlockedTasks)
	}
	fmt.Printf(" (%.0f%% progress, confidence %.2f)\n", summary.Progress, summary.ConfidenceLevel)

	if len(summary.KeyInsights) > 0 {
		fmt.Println("Key insights:")
		for _, insight := range summary.KeyInsights {
			fmt.Printf("  - %s\n", insight)
		}
	}
}

func printTokenUsage(client *api.Client) {
	input, output := client.Tracker().Totals()
	fmt.Printf("Tokens: %d in / %d out across %d calls\n", input, output, client.Tracker().Calls())
}
