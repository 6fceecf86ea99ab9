// Package main provides the entry point for the apply agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "apply_agent",
	Short: "Quick-apply automation for job listings",
	Long: `apply_agent restores or establishes a logged-in browser session, scans job search results and
walks each quick-apply form with human-paced input, recording one outcome per listing.

Configuration can be loaded from a JSON file using --config. Secrets are read from the environment
(APPLY_PASSWORD, SESSION_PASSPHRASE, GEMINI_API_KEY, DATABASE_URL) or a .env file.`,
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// loadConfig reads --config over the defaults, applies the environment and
// the verbose flag, then validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv(os.Getenv)
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	return &cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
