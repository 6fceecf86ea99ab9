// Package session persists and restores the authenticated cookie set.
// It knows nothing about browsers: callers hand it cookies after they have
// verified the login themselves.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonathan/apply-agent/internal/schemas"
	"github.com/jonathan/apply-agent/internal/types"
	schemafiles "github.com/jonathan/apply-agent/schemas"
	"go.uber.org/zap"
)

// Store persists the cookie set between runs
type Store interface {
	// Restore returns the persisted cookies, or false when there are none.
	// Missing or corrupt data is not an error.
	Restore(ctx context.Context) ([]types.SessionCookie, bool)
	// Persist replaces the stored cookie set.
	Persist(ctx context.Context, cookies []types.SessionCookie) error
	// Invalidate removes the stored cookie set.
	Invalidate(ctx context.Context) error
}

// FileStore keeps the cookie set in a single JSON file, optionally sealed.
type FileStore struct {
	path   string
	sealer *Sealer
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a FileStore
type Option func(*FileStore)

// WithSealer encrypts the file with s
func WithSealer(s *Sealer) Option {
	return func(f *FileStore) { f.sealer = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *FileStore) { f.logger = l }
}

// WithClock overrides the clock used to drop expired cookies
func WithClock(now func() time.Time) Option {
	return func(f *FileStore) { f.now = now }
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, opts ...Option) *FileStore {
	f := &FileStore{path: path, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("session")
	return f
}

// Path returns the session file location
func (f *FileStore) Path() string {
	return f.path
}

// Restore implements Store
func (f *FileStore) Restore(ctx context.Context) ([]types.SessionCookie, bool) {
	cookies, err := f.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			f.logger.Warn("discarding unreadable session file", zap.String("path", f.path), zap.Error(err))
		}
		return nil, false
	}
	return cookies, true
}

// Load is Restore with the reason for a miss. It returns ErrNoSession when the
// file is absent or holds no live cookies.
func (f *FileStore) Load(_ context.Context) ([]types.SessionCookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return nil, err
	}
	live := types.LiveCookies(all, f.now())
	if len(live) == 0 {
		return nil, ErrNoSession
	}
	f.logger.Debug("restored session",
		zap.Int("cookies", len(live)),
		zap.Int("expired", len(all)-len(live)))
	return live, nil
}

func (f *FileStore) read() ([]types.SessionCookie, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, &StoreError{Path: f.path, Message: "failed to read session file", Cause: err}
	}

	if IsSealed(data) {
		if f.sealer == nil {
			return nil, &StoreError{Path: f.path, Message: "session file is sealed and no passphrase is configured"}
		}
		if data, err = f.sealer.Open(data); err != nil {
			return nil, &StoreError{Path: f.path, Message: "failed to unseal session file", Cause: err}
		}
	} else if f.sealer != nil {
		return nil, &StoreError{Path: f.path, Message: "session file is not sealed but a passphrase is configured"}
	}

	if err := schemas.Validate(schemafiles.SessionCookies, data); err != nil {
		return nil, &StoreError{Path: f.path, Message: "session file does not match schema", Cause: err}
	}

	var cookies []types.SessionCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, &StoreError{Path: f.path, Message: "failed to parse session file", Cause: err}
	}
	return cookies, nil
}

// Persist implements Store. The file is replaced atomically with mode 0600.
func (f *FileStore) Persist(_ context.Context, cookies []types.SessionCookie) error {
	if len(cookies) == 0 {
		return &StoreError{Path: f.path, Message: "refusing to persist an empty cookie set"}
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return &StoreError{Path: f.path, Message: "failed to encode cookies", Cause: err}
	}
	if f.sealer != nil {
		if data, err = f.sealer.Seal(data); err != nil {
			return &StoreError{Path: f.path, Message: "failed to seal cookies", Cause: err}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeAtomic(f.path, data); err != nil {
		return &StoreError{Path: f.path, Message: "failed to write session file", Cause: err}
	}
	f.logger.Debug("persisted session", zap.Int("cookies", len(cookies)), zap.Bool("sealed", f.sealer != nil))
	return nil
}

// Invalidate implements Store
func (f *FileStore) Invalidate(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return &StoreError{Path: f.path, Message: "failed to remove session file", Cause: err}
	}
	f.logger.Info("session invalidated", zap.String("path", f.path))
	return nil
}

// Status describes the session file for the CLI
type Status struct {
	Exists   bool
	Sealed   bool
	Cookies  int
	Live     int
	Modified time.Time
}

// Status inspects the session file without trusting it.
func (f *FileStore) Status(_ context.Context) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, &StoreError{Path: f.path, Message: "failed to stat session file", Cause: err}
	}
	st := Status{Exists: true, Modified: info.ModTime()}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return st, &StoreError{Path: f.path, Message: "failed to read session file", Cause: err}
	}
	st.Sealed = IsSealed(raw)

	cookies, err := f.read()
	if err != nil {
		return st, err
	}
	st.Cookies = len(cookies)
	st.Live = len(types.LiveCookies(cookies, f.now()))
	return st, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
