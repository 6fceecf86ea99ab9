package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/engine"
	"github.com/jonathan/apply-agent/internal/observability"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scan search results and quick-apply to each listing",
	Long: `Restores the saved session (or logs in), scans the configured search results and walks each
quick-apply form. Every listing ends with one outcome: submitted, skipped, blocked, failed or abandoned.

Ctrl-C stops after the current step; a second signal or the grace window expiring closes the browser.`,
	RunE: runAgentCmd,
}

var (
	runSearchURL  string
	runMaxItems   int
	runMaxSteps   int
	runHeadless   bool
	runNoMonitor  bool
	runResumePath string
	runReportPath string
)

func init() {
	addRunFlags(runCommand)
	rootCmd.AddCommand(runCommand)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runSearchURL, "search-url", "", "Search results URL to scan")
	cmd.Flags().IntVar(&runMaxItems, "max-items", 0, "Maximum listings to process")
	cmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "Maximum form steps per listing")
	cmd.Flags().BoolVar(&runHeadless, "headless", false, "Run Chrome without a window (disables manual verification)")
	cmd.Flags().BoolVar(&runNoMonitor, "no-monitor", false, "Disable the browser liveness monitor")
	cmd.Flags().StringVar(&runResumePath, "resume", "", "Resume file to upload when no template is configured")
	cmd.Flags().StringVar(&runReportPath, "report", "", "Write the run report as JSON to this path")
}

// applyRunOverrides copies explicitly set flags over the loaded config.
func applyRunOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("search-url") {
		cfg.SearchURL = runSearchURL
	}
	if flags.Changed("max-items") {
		cfg.MaxItems = runMaxItems
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = runMaxSteps
	}
	if flags.Changed("headless") {
		cfg.Headless = runHeadless
	}
	if flags.Changed("no-monitor") {
		cfg.MonitoringEnabled = !runNoMonitor
	}
	if flags.Changed("resume") {
		cfg.ResumePath = runResumePath
	}
}

func runAgentCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
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

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintProfile(a.pacer.Profile())
	}

	report, runErr := eng.Run(ctx)
	if report != nil {
		printer.PrintReport(report)
		if runReportPath != "" {
			if err := writeReport(runReportPath, report); err != nil {
				logger.Error("failed to write report", zap.Error(err))
			}
		}
	}

	if runErr != nil {
		if engine.IsBrowserLost(runErr) {
			return fmt.Errorf("browser lost, run stopped: %w", runErr)
		}
		return runErr
	}
	return nil
}

// credentialFor returns the login credential. The secret is prompted for only
// when the environment has none, a terminal is attached and no live session
// is saved.
func credentialFor(ctx context.Context, cfg *config.Config, sessions *session.FileStore) (types.SessionCredential, error) {
	cred := types.SessionCredential{Identity: cfg.Identity, Secret: cfg.Password}
	if cred.Secret != "" || cred.Identity == "" || !stdinIsTerminal() {
		return cred, nil
	}
	st, err := sessions.Status(ctx)
	if err == nil && st.Live > 0 {
		return cred, nil
	}
	secret, err := promptSecret("Password for " + cred.Identity)
	if err != nil {
		return cred, err
	}
	cred.Secret = secret
	return cred, nil
}

func writeReport(path string, report *types.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
