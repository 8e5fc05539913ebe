package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/probelab/probe/internal/config"
	"github.com/probelab/probe/internal/state"
)

var (
	historyLimit     int
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past research runs",
	Long: `Browse past research runs recorded in the local history database.

Without a subcommand, lists recent runs. Use 'show' to print a run's
full report and 'purge' to drop old records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRuns()
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRuns()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's report and summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRun(args[0])
	},
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete runs older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		return purgeRuns(historyOlderThan)
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyPurgeCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "Delete runs older than this duration")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPurgeCmd)
}

func openHistory() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := state.Open(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func listRuns() error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet. Start one with 'probe run'.")
		return nil
	}

	for _, rec := range records {
		flags := ""
		if rec.Summary.CeilingReached {
			flags += " [ceiling]"
		}
		if rec.Summary.Stalled {
			flags += " [stalled]"
		}
		fmt.Printf("%s  %s  %d/%d tasks  %.0f%%%s\n",
			rec.Summary.RunID,
			rec.StartedAt.Local().Format("2006-01-02 15:04"),
			rec.Summary.SuccessfulTasks,
			rec.Summary.TotalSubTasks,
			rec.Summary.Progress,
			flags)
		fmt.Printf("          %s (%s, %d passes)\n", rec.IssueTitle, rec.Profile, rec.Iterations)
	}
	return nil
}

func showRun(runID string) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := db.GetRun(runID)
	if err != nil {
		if errors.Is(err, state.ErrRunNotFound) {
			fmt.Fprintf(os.Stderr, "Run %s not found. Use 'probe history list' to see recorded runs.\n", runID)
			os.Exit(1)
		}
		return err
	}

	fmt.Printf("Run %s: %s\n", rec.Summary.RunID, rec.IssueTitle)
	fmt.Printf("Profile %s, %d passes, started %s\n\n", rec.Profile, rec.Iterations, rec.StartedAt.Local().Format(time.RFC1123))
	fmt.Println(rec.Report.Body)

	if len(rec.Report.Limitations) > 0 {
		yellow := color.New(color.FgYellow)
		fmt.Println()
		yellow.Println("Limitations:")
		for _, line := range rec.Report.Limitations {
			fmt.Printf("  - %s\n", line)
		}
	}

	fmt.Printf("\n%d/%d sub-tasks completed (%.0f%% progress, confidence %.2f)\n",
		rec.Summary.SuccessfulTasks, rec.Summary.TotalSubTasks, rec.Summary.Progress, rec.Summary.ConfidenceLevel)
	for _, insight := range rec.Summary.KeyInsights {
		fmt.Printf("  - %s\n", insight)
	}
	return nil
}

func purgeRuns(olderThan time.Duration) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	purged, err := db.PurgeOldRuns(olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d run(s) older than %s\n", purged, olderThan)
	return nil
}
