package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/apply-agent/internal/config"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveCookies() []types.SessionCookie {
	return []types.SessionCookie{
		{Name: "li_at", Value: "token", Domain: ".linkedin.com", Path: "/", Expires: float64(time.Now().Add(24 * time.Hour).Unix())},
		{Name: "lang", Value: "en", Domain: ".linkedin.com", Path: "/", Expires: float64(time.Now().Add(-time.Hour).Unix())},
	}
}

func TestSessionCommands(t *testing.T) {
	t.Setenv(config.EnvSessionPassphrase, "")
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	cfgPath := writeConfigFile(t, map[string]any{"session_file": sessionFile})

	out, err := executeCommand(t, "session", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No session saved")

	require.NoError(t, session.NewFileStore(sessionFile).Persist(context.Background(), liveCookies()))

	out, err = executeCommand(t, "session", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Sealed:       false")
	assert.Contains(t, out, "Cookies:      2 (1 unexpired)")
	assert.Contains(t, out, "usable")

	out, err = executeCommand(t, "session", "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Session cleared")

	out, err = executeCommand(t, "session", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No session saved")
}

func TestSessionStatus_WrongPassphrase(t *testing.T) {
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	cfgPath := writeConfigFile(t, map[string]any{"session_file": sessionFile})

	sealed := session.NewFileStore(sessionFile, session.WithSealer(session.NewSealer("right")))
	require.NoError(t, sealed.Persist(context.Background(), liveCookies()))

	t.Setenv(config.EnvSessionPassphrase, "wrong")
	out, err := executeCommand(t, "session", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Sealed:       true")
	assert.Contains(t, out, "unreadable")
}
