package main

import (
	"fmt"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/spf13/cobra"
)

var validateConfigCommand = &cobra.Command{
	Use:   "validate-config [path]",
	Short: "Check a config file against the schema and validation rules",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidateConfigCmd,
}

func init() {
	rootCmd.AddCommand(validateConfigCommand)
}

func runValidateConfigCmd(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no config file given: pass a path or --config")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %s\n", path)
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %s\n", path)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %s\n", path)
	return nil
}
