package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleManualLogin(t *testing.T) {
	t.Run("continues on enter", func(t *testing.T) {
		var out bytes.Buffer
		login := consoleManualLogin(strings.NewReader("\n"), &out)

		require.NoError(t, login(context.Background(), "https://www.linkedin.com/checkpoint/challenge/abc"))
		assert.Contains(t, out.String(), "checkpoint/challenge/abc")
		assert.Contains(t, out.String(), "press Enter")
	})

	t.Run("closed input continues", func(t *testing.T) {
		login := consoleManualLogin(strings.NewReader(""), io.Discard)
		assert.NoError(t, login(context.Background(), "https://www.linkedin.com/checkpoint/"))
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := consoleManualLogin(r, io.Discard)(ctx, "https://www.linkedin.com/checkpoint/")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestManualLoginFor_Headless(t *testing.T) {
	assert.Nil(t, manualLoginFor(true))
}
