package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probelab/probe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or initialize Probe configuration.

Configuration is stored at ~/.config/probe/config.yaml
Project-specific overrides can be placed in .probe.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keyDisplay := "(not set)"
	if key, keyErr := config.GetAPIKey(cfg); keyErr == nil {
		keyDisplay = fmt.Sprintf("%s (from %s)", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	}

	fmt.Printf("anthropic.api_key: %s\n", keyDisplay)
	fmt.Printf("aws.use_bedrock: %t\n", cfg.AWS.UseBedrock)
	fmt.Printf("aws.region: %s\n", cfg.AWS.Region)
	fmt.Printf("aws.profile: %s\n", cfg.AWS.Profile)
	fmt.Printf("defaults.profile: %s\n", cfg.Defaults.Profile)
	fmt.Printf("defaults.model: %s\n", cfg.Defaults.Model)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
	fmt.Printf("history.path: %s\n", cfg.HistoryPath())

	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("\nProject overrides loaded from %s\n", project)
	}
	return nil
}

func initConfig() error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}

	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}
