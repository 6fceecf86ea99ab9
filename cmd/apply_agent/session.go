package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/apply-agent/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sessionCommand = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the saved browser session",
}

var sessionStatusCommand = &cobra.Command{
	Use:   "status",
	Short: "Report whether a usable session file exists",
	RunE:  runSessionStatusCmd,
}

var sessionClearCommand = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved session so the next run logs in",
	RunE:  runSessionClearCmd,
}

func init() {
	sessionCommand.AddCommand(sessionStatusCommand, sessionClearCommand)
	rootCmd.AddCommand(sessionCommand)
}

func sessionStore(cmd *cobra.Command) (*session.FileStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newSessionStore(cfg, zap.NewNop()), nil
}

func runSessionStatusCmd(cmd *cobra.Command, _ []string) error {
	store, err := sessionStore(cmd)
	if err != nil {
		return err
	}
	st, err := store.Status(context.Background())
	if err != nil && !st.Exists {
		return err
	}

	out := cmd.OutOrStdout()
	if !st.Exists {
		fmt.Fprintf(out, "No session saved at %s\n", store.Path())
		return nil
	}
	fmt.Fprintf(out, "Session file: %s\n", store.Path())
	fmt.Fprintf(out, "Sealed:       %v\n", st.Sealed)
	fmt.Fprintf(out, "Saved:        %s\n", st.Modified.Format(time.RFC3339))
	switch {
	case err != nil:
		fmt.Fprintf(out, "Status:       unreadable (%v), the next run will log in\n", err)
	case st.Live == 0:
		fmt.Fprintf(out, "Cookies:      %d (0 unexpired)\n", st.Cookies)
		fmt.Fprintln(out, "Status:       expired, the next run will log in")
	default:
		fmt.Fprintf(out, "Cookies:      %d (%d unexpired)\n", st.Cookies, st.Live)
		fmt.Fprintln(out, "Status:       usable")
	}
	return nil
}

func runSessionClearCmd(cmd *cobra.Command, _ []string) error {
	store, err := sessionStore(cmd)
	if err != nil {
		return err
	}
	if err := store.Invalidate(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session cleared: %s\n", store.Path())
	return nil
}
