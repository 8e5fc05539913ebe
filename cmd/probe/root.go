package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Iterative research orchestration engine",
	Long: `Probe decomposes a research question into a dependency-ordered graph
of sub-tasks, executes ready sub-tasks concurrently against Claude,
evaluates convergence after each pass, and synthesizes the completed
findings into a final report.

Runs iterate until the findings cover the question, the graph stalls,
or the iteration ceiling is hit. Every run is recorded in a local
history database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
