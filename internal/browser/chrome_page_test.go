package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestBoundTo(t *testing.T) {
	t.Run("carries the caller deadline and parent values", func(t *testing.T) {
		parent := context.WithValue(context.Background(), ctxKey{}, "browser")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		bound, stop := boundTo(parent, ctx)
		defer stop()

		want, _ := ctx.Deadline()
		got, ok := bound.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
		assert.Equal(t, "browser", bound.Value(ctxKey{}))
	})

	t.Run("ends when the caller is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		bound, stop := boundTo(context.Background(), ctx)
		defer stop()

		cancel()
		select {
		case <-bound.Done():
		case <-time.After(time.Second):
			t.Fatal("bound context outlived the caller")
		}
	})

	t.Run("ends when the parent ends", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		bound, stop := boundTo(parent, context.Background())
		defer stop()

		cancel()
		select {
		case <-bound.Done():
		case <-time.After(time.Second):
			t.Fatal("bound context outlived the browser")
		}
	})

	t.Run("stop leaves the parent alive", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		defer cancel()
		bound, stop := boundTo(parent, context.Background())
		stop()

		assert.Error(t, bound.Err())
		assert.NoError(t, parent.Err())
	})
}

func TestChrome_LiveContextsHonoursProbeContext(t *testing.T) {
	browserCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &Chrome{browserCtx: browserCtx}

	ctx, cancelProbe := context.WithCancel(context.Background())
	cancelProbe()

	_, err := c.LiveContexts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, browserCtx.Err())
}
