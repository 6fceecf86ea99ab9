package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/spf13/cobra"
)

var loginCommand = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and save the session without applying",
	Long: `Restores the saved session or logs in with the configured identity, then saves the cookies.
Run it headed to resolve a verification challenge by hand before unattended runs.`,
	RunE: runLoginCmd,
}

var loginHeadless bool

func init() {
	loginCommand.Flags().BoolVar(&loginHeadless, "headless", false, "Run Chrome without a window (disables manual verification)")
	rootCmd.AddCommand(loginCommand)
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = loginHeadless
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	credential, err := credentialFor(ctx, cfg, a.sessions)
	if err != nil {
		return err
	}
	if err := a.launch(); err != nil {
		return err
	}
	engCfg, err := a.engineConfig(credential, manualLoginFor(cfg.Headless))
	if err != nil {
		return err
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}

	if err := eng.Login(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session saved to %s\n", a.sessions.Path())
	return nil
}
