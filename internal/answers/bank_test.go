package answers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankYAML = `profile:
  full_name: Ada Lovelace
  years_go: "7"
questions:
  "Do you require visa sponsorship?": "No"
  "Are you comfortable commuting to this job's location?": "Yes"
  "Empty answer": ""
`

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadBank(t *testing.T) {
	bank, err := LoadBank(writeBank(t, bankYAML))
	require.NoError(t, err)

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"Do you require visa sponsorship?", "No", true},
		{"do you require VISA sponsorship", "No", true},
		{"Are you comfortable commuting to this job's location? *", "Yes", true},
		{"Empty answer", "", false},
		{"Something else", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok, err := bank.Answer(context.Background(), Question{Label: tt.label}, types.JobContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "full_name: Ada Lovelace\nyears_go: 7", bank.Facts())

	profile := bank.Profile()
	assert.Equal(t, "Ada Lovelace", profile["full_name"])
	profile["full_name"] = "changed"
	assert.Equal(t, "Ada Lovelace", bank.Profile()["full_name"], "Profile returns a copy")
}

func TestLoadBank_MissingFile(t *testing.T) {
	bank, err := LoadBank(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Zero(t, bank.Len())
}

func TestLoadBank_Malformed(t *testing.T) {
	_, err := LoadBank(writeBank(t, "questions: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse answer bank")
}

func TestBank_RememberReplacesAndSaves(t *testing.T) {
	path := writeBank(t, bankYAML)
	bank, err := LoadBank(path)
	require.NoError(t, err)

	bank.Remember("do you require visa sponsorship", "Yes")
	require.NoError(t, bank.Save())

	reloaded, err := LoadBank(path)
	require.NoError(t, err)
	assert.Equal(t, bank.Len(), reloaded.Len())
	got, ok, _ := reloaded.Answer(context.Background(), Question{Label: "Do you require visa sponsorship?"}, types.JobContext{})
	assert.True(t, ok)
	assert.Equal(t, "Yes", got)
	assert.Contains(t, reloaded.Facts(), "Ada Lovelace", "profile survives a save")
}

func TestBank_SaveWithoutChangesIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untouched.yaml")
	require.NoError(t, NewBank(path).Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
