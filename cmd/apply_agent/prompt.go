package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/apply-agent/internal/engine"
	"golang.org/x/term"
)

// stdinIsTerminal reports whether a human can answer prompts
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptSecret reads a line from the terminal without echo.
func promptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// awaitEnter blocks until a line is read from in or ctx ends.
func awaitEnter(ctx context.Context, in io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consoleManualLogin asks the user to resolve a verification challenge in
// the visible browser window.
func consoleManualLogin(in io.Reader, out io.Writer) engine.ManualLogin {
	return func(ctx context.Context, url string) error {
		fmt.Fprintf(out, "\nVerification required at %s\n", url)
		fmt.Fprintln(out, "Complete it in the browser window, then press Enter to continue.")
		return awaitEnter(ctx, in)
	}
}

// manualLoginFor returns the manual path only when a human is at a terminal
// and the browser window is visible.
func manualLoginFor(headless bool) engine.ManualLogin {
	if headless || !stdinIsTerminal() {
		return nil
	}
	return consoleManualLogin(os.Stdin, os.Stderr)
}
