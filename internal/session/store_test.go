package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func clock() time.Time { return fixedNow }

func sampleCookies() []types.SessionCookie {
	return []types.SessionCookie{
		{Name: "li_at", Value: "token", Domain: ".linkedin.com", Path: "/", Expires: float64(fixedNow.Add(24 * time.Hour).Unix()), HTTPOnly: true, Secure: true},
		{Name: "JSESSIONID", Value: "ajax:123", Domain: ".www.linkedin.com", Path: "/"},
	}
}

func newStore(t *testing.T, opts ...Option) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cookies.json")
	return NewFileStore(path, append([]Option{WithClock(clock)}, opts...)...)
}

func TestFileStore_RestoreMissing(t *testing.T) {
	s := newStore(t)

	cookies, ok := s.Restore(context.Background())
	assert.False(t, ok)
	assert.Nil(t, cookies)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_PersistRestoreRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, sampleCookies()))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cookies, ok := s.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, sampleCookies(), cookies)
}

func TestFileStore_PersistReplacesNeverMerges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, sampleCookies()))
	fresh := []types.SessionCookie{{Name: "li_at", Value: "new", Domain: ".linkedin.com"}}
	require.NoError(t, s.Persist(ctx, fresh))

	cookies, ok := s.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, fresh, cookies)
}

func TestFileStore_RestoreCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "wrong shape", content: `{"cookies": []}`},
		{name: "missing domain", content: `[{"name": "a", "value": "b"}]`},
		{name: "empty array", content: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o600))

			cookies, ok := s.Restore(context.Background())
			assert.False(t, ok)
			assert.Nil(t, cookies)
		})
	}
}

func TestFileStore_RestoreDropsExpired(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	expired := []types.SessionCookie{
		{Name: "old", Value: "x", Domain: ".linkedin.com", Expires: float64(fixedNow.Add(-time.Hour).Unix())},
	}
	require.NoError(t, s.Persist(ctx, expired))
	_, ok := s.Restore(ctx)
	assert.False(t, ok, "a set with no live cookies is no session")

	mixed := append(expired, sampleCookies()...)
	require.NoError(t, s.Persist(ctx, mixed))
	cookies, ok := s.Restore(ctx)
	require.True(t, ok)
	assert.Len(t, cookies, 2)
}

func TestFileStore_PersistEmptyRefused(t *testing.T) {
	s := newStore(t)
	err := s.Persist(context.Background(), nil)

	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_Invalidate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Invalidate(ctx), "invalidating nothing is fine")
	require.NoError(t, s.Persist(ctx, sampleCookies()))
	require.NoError(t, s.Invalidate(ctx))

	_, ok := s.Restore(ctx)
	assert.False(t, ok)
}

func TestFileStore_Sealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cookies.json")

	sealed := NewFileStore(path, WithClock(clock), WithSealer(NewSealer("correct horse")))
	require.NoError(t, sealed.Persist(ctx, sampleCookies()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsSealed(raw))
	assert.NotContains(t, string(raw), "li_at")

	cookies, ok := sealed.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, sampleCookies(), cookies)

	wrong := NewFileStore(path, WithClock(clock), WithSealer(NewSealer("battery staple")))
	_, ok = wrong.Restore(ctx)
	assert.False(t, ok, "wrong passphrase reads as no session")

	plain := NewFileStore(path, WithClock(clock))
	_, ok = plain.Restore(ctx)
	assert.False(t, ok, "sealed file without passphrase reads as no session")
}

func TestFileStore_SealerRejectsPlaintext(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cookies.json")

	plain := NewFileStore(path, WithClock(clock))
	require.NoError(t, plain.Persist(ctx, sampleCookies()))

	sealed := NewFileStore(path, WithClock(clock), WithSealer(NewSealer("correct horse")))
	_, ok := sealed.Restore(ctx)
	assert.False(t, ok, "plaintext file reads as no session once a passphrase is set")

	_, err := sealed.Load(ctx)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, storeErr.Message, "not sealed")

	require.NoError(t, sealed.Persist(ctx, sampleCookies()))
	cookies, ok := sealed.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, sampleCookies(), cookies)
}

func TestFileStore_Status(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	st, err := s.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Exists)

	cookies := append(sampleCookies(), types.SessionCookie{
		Name: "stale", Value: "x", Domain: ".linkedin.com", Expires: float64(fixedNow.Add(-time.Minute).Unix()),
	})
	require.NoError(t, s.Persist(ctx, cookies))

	st, err = s.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.False(t, st.Sealed)
	assert.Equal(t, 3, st.Cookies)
	assert.Equal(t, 2, st.Live)
}
