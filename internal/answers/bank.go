package answers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/apply-agent/internal/types"
	"gopkg.in/yaml.v3"
)

// bankFile is the on-disk YAML layout
type bankFile struct {
	Profile   map[string]string `yaml:"profile,omitempty"`
	Questions map[string]string `yaml:"questions"`
}

// Bank is the user's answer file: profile facts and answers keyed by question label.
type Bank struct {
	path string

	mu        sync.RWMutex
	profile   map[string]string
	questions map[string]string // label as written
	index     map[string]string // normalized label -> answer
	dirty     bool
}

// NewBank creates an empty bank saved to path
func NewBank(path string) *Bank {
	return &Bank{
		path:      path,
		profile:   make(map[string]string),
		questions: make(map[string]string),
		index:     make(map[string]string),
	}
}

// LoadBank reads path. A missing file gives an empty bank.
func LoadBank(path string) (*Bank, error) {
	b := NewBank(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read answer bank %s: %w", path, err)
	}

	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse answer bank %s: %w", path, err)
	}
	for k, v := range f.Profile {
		b.profile[k] = v
	}
	for label, answer := range f.Questions {
		b.questions[label] = answer
		b.index[Normalize(label)] = answer
	}
	return b, nil
}

// Answer implements Source
func (b *Bank) Answer(_ context.Context, q Question, _ types.JobContext) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	answer, ok := b.index[Normalize(q.Label)]
	if !ok || strings.TrimSpace(answer) == "" {
		return "", false, nil
	}
	return answer, true, nil
}

// Remember records an answer for label. It replaces an existing one.
func (b *Bank) Remember(label, answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := Normalize(label)
	for existing := range b.questions {
		if Normalize(existing) == key {
			delete(b.questions, existing)
		}
	}
	b.questions[strings.TrimSpace(label)] = answer
	b.index[key] = answer
	b.dirty = true
}

// Facts returns the profile as "key: value" lines, sorted by key
func (b *Bank) Facts() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.profile))
	for k := range b.profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+b.profile[k])
	}
	return strings.Join(lines, "\n")
}

// Profile returns a copy of the profile facts
func (b *Bank) Profile() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.profile))
	for k, v := range b.profile {
		out[k] = v
	}
	return out
}

// Len returns the number of stored answers
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

// Save writes the bank if it changed since loading.
func (b *Bank) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty || b.path == "" {
		return nil
	}

	data, err := yaml.Marshal(bankFile{Profile: b.profile, Questions: b.questions})
	if err != nil {
		return fmt.Errorf("failed to encode answer bank: %w", err)
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create answer bank directory: %w", err)
		}
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write answer bank: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace answer bank: %w", err)
	}
	b.dirty = false
	return nil
}
