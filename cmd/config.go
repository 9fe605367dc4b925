package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opsgate/opsgate/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage opsgate configuration",
	Long:  `Inspect and initialize the opsgate configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a default configuration file in your home directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".opsgate.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists at %s\n", configPath)
			return nil
		}

		defaultConfig := `# Opsgate Configuration
# Copy this to ~/.opsgate.yaml and customize for your setup

security:
  mode: strict  # strict blocks mutating commands; permissive warns instead

limits:
  max_wall_clock_secs: 30
  max_output_bytes: 1048576
  max_children: 64
  max_executions: 16

# Provider context injected into every command unless overridden by flags
aws:
  profile: ""
  region: ""

azure:
  subscription: ""
  tenant: ""

gcp:
  project: ""

audit:
  db: ""  # path to the SQLite audit database; empty disables auditing

playbooks:
  catalog: ""  # extra playbook catalog YAML loaded alongside the built-ins
`

		if err := os.WriteFile(configPath, []byte(defaultConfig), 0o600); err != nil {
			return fmt.Errorf("error writing config file: %w", err)
		}

		fmt.Printf("Configuration file created at %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fmt.Printf("security mode:     %s\n", cfg.Mode)
		fmt.Printf("max wall clock:    %s\n", cfg.Limits.MaxWallClock)
		fmt.Printf("max output bytes:  %d\n", cfg.Limits.MaxOutputBytes)
		fmt.Printf("max children:      %d\n", cfg.Limits.MaxChildren)
		fmt.Printf("max executions:    %d\n", cfg.Limits.MaxExecutions)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
