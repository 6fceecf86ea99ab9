package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("answers.json", "answer-question")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Question}}")
	assert.Contains(t, prompt, "UNKNOWN")
}

func TestGet_Errors(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")

	_, err = Get("answers.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("answers.json", "resume-summary"))
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces all", "Q: {{.Question}} ({{.Kind}}) {{.Question}}", map[string]string{"Question": "Sponsorship?", "Kind": "radio"}, "Q: Sponsorship? (radio) Sponsorship?"},
		{"no placeholders", "plain", map[string]string{"Key": "Value"}, "plain"},
		{"missing data keeps placeholder", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"value containing a placeholder is not expanded", "{{.A}}", map[string]string{"A": "{{.B}}", "B": "x"}, "{{.B}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestRender(t *testing.T) {
	ClearCache()

	out, err := Render("answers.json", "answer-question", map[string]string{"Question": "Do you require visa sponsorship?"})
	require.NoError(t, err)
	assert.Contains(t, out, "Question: Do you require visa sponsorship?")
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("answers.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"answer-question", "resume-summary"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	first, err := Get("answers.json", "answer-question")
	require.NoError(t, err)
	second, err := Get("answers.json", "answer-question")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
