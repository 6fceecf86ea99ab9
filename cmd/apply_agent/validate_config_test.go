package main

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigCommand(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]any
		wantErr bool
		want    string
	}{
		{
			name:   "valid",
			fields: map[string]any{"max_items": 5, "questions": map[string]any{"defaults": []map[string]string{{"keyword": "clearance", "answer": "No"}}}},
			want:   "Validation passed",
		},
		{name: "schema violation", fields: map[string]any{"headless": "yes"}, wantErr: true, want: "Validation failed"},
		{name: "cross-field violation", fields: map[string]any{"delays": map[string]any{"between_listings_min_sec": 30, "between_listings_max_sec": 5}}, wantErr: true, want: "Validation failed"},
		{name: "missing resume", fields: map[string]any{"resume_path": "/nonexistent/cv.pdf"}, wantErr: true, want: "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.fields)
			out, err := executeCommand(t, "validate-config", path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestValidateConfigCommand_NoPath(t *testing.T) {
	_, err := executeCommand(t, "validate-config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config file given")
}

func TestValidateConfigBinary(t *testing.T) {
	binaryPath := getBinaryPath(t)

	path := filepath.Join(t.TempDir(), "missing.json")
	cmd := exec.Command(binaryPath, "validate-config", path)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err, "command should fail")
	assert.Contains(t, string(output), "Validation failed")
	if exitError, ok := err.(*exec.ExitError); ok {
		assert.Equal(t, 1, exitError.ExitCode(), "should exit with code 1 on validation failure")
	}
}
