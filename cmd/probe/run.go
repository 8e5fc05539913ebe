package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/probelab/probe/internal/api"
	"github.com/probelab/probe/internal/config"
	"github.com/probelab/probe/internal/decompose"
	"github.com/probelab/probe/internal/orchestrator"
	"github.com/probelab/probe/internal/research"
	"github.com/probelab/probe/internal/signals"
	"github.com/probelab/probe/internal/state"
	"github.com/probelab/probe/internal/synthesis"
	"github.com/probelab/probe/internal/tui"
	"github.com/probelab/probe/pkg/models"
)

var (
	runProfile  string
	runMaxTasks int
	runModel    string
	runPlain    bool
)

var runCmd = &cobra.Command{
	Use:   "run <question>",
	Short: "Run a research investigation",
	Long: `Run a research investigation against a question.

The question is decomposed into sub-tasks with dependencies, ready
sub-tasks are researched concurrently, and the run iterates until the
findings converge, the graph stalls, or the iteration ceiling is hit.
The completed findings are synthesized into a report and the run is
recorded in history.

Depth profiles (--profile):
  - quick:    shallow pass, 2 workers, short timeouts
  - standard: balanced depth, 3 workers (default)
  - deep:     thorough pass, 4 workers, high convergence bar

Pause or stop a running investigation from another shell:
  probe signals are files under .probe/signals; touch 'pause' to pause
  between passes, remove it to resume, touch 'stop' to finish early
  with whatever has completed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	runCmd.Flags().StringVar(&runProfile, "profile", "", "Depth profile: quick, standard, or deep")
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "Override the profile's iteration ceiling")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the model for all collaborators")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Stream plain text events instead of the TUI")
}

func runResearch(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	profiles, err := config.LoadProfiles(profilesDir())
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	profileName := runProfile
	if profileName == "" {
		profileName = cfg.Defaults.Profile
	}
	profile, err := profiles.Get(profileName)
	if err != nil {
		return err
	}

	runCfg := profile.RunConfig()
	if cfg.Defaults.Model != "" {
		runCfg.Model = cfg.Defaults.Model
	}
	if runModel != "" {
		runCfg.Model = runModel
	}
	if runMaxTasks > 0 {
		runCfg.MaxSubTasks = runMaxTasks
	}

	var apiKey string
	if !cfg.AWS.UseBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return err
		}
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(runCfg.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.AWS.UseBedrock,
		AWSRegion:     cfg.AWS.Region,
		AWSProfile:    cfg.AWS.Profile,
	})
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	temperature := runCfg.Temperature
	completeOpts := &api.CompleteOptions{Temperature: &temperature}

	orch, err := orchestrator.New(runCfg, orchestrator.Collaborators{
		Decomposer:  decompose.NewClaude(client, completeOpts),
		Researcher:  research.NewClaude(client, completeOpts),
		Synthesizer: synthesis.NewClaude(client, completeOpts),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	if cwd, cwdErr := os.Getwd(); cwdErr == nil {
		if watcher, wErr := signals.New(cwd); wErr == nil {
			watcher.OnStop(cancel)
			watcher.OnPause(func(paused bool) {
				if paused {
					orch.Pause()
				} else {
					orch.Resume()
				}
			})
			defer watcher.Close()
		}
	}

	issue := buildIssue(question)

	type runResult struct {
		outcome *orchestrator.RunOutcome
		err     error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		outcome, runErr := orch.Run(ctx, issue)
		resultCh <- runResult{outcome, runErr}
	}()

	if runPlain {
		renderPlainEvents(orch.Events())
	} else {
		if tuiErr := tui.Run(issue.Title, orch.Events()); tuiErr != nil {
			fmt.Fprintf(os.Stderr, "TUI unavailable (%v), continuing headless\n", tuiErr)
		}
		// Drain anything left if the TUI quit before the run finished.
		for range orch.Events() {
		}
	}

	// Quitting the UI early cancels the run; a finished run ignores this.
	cancel()

	result := <-resultCh
	if result.err != nil {
		return result.err
	}

	printOutcome(result.outcome)
	printTokenUsage(client)

	if saveErr := saveHistory(cfg, result.outcome, issue, profile.Name); saveErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not record run in history: %v\n", saveErr)
	}
	return nil
}

// buildIssue derives a research issue from the raw question text. The first
// line names the investigation; the full text is the description.
func buildIssue(question string) *models.ResearchIssue {
	title := question
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	return &models.ResearchIssue{
		Title:       title,
		Description: question,
	}
}

func profilesDir() string {
	return filepath.Join(filepath.Dir(config.GetUserConfigPath()), "profiles")
}

func saveHistory(cfg *config.Config, outcome *orchestrator.RunOutcome, issue *models.ResearchIssue, profileName string) error {
	db, err := state.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	return db.SaveRun(&state.RunRecord{
		Summary:     *outcome.Summary,
		IssueTitle:  issue.Title,
		Profile:     profileName,
		Iterations:  outcome.Metadata.Iterations,
		StartedAt:   outcome.Metadata.StartedAt,
		CompletedAt: outcome.Metadata.CompletedAt,
		Report:      *outcome.Report,
	})
}
