package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"answer\": \"Yes\"}\n```",
			expected: `{"answer": "Yes"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"answer\": \"Yes\"}\n```",
			expected: `{"answer": "Yes"}`,
		},
		{
			name:     "plain JSON",
			input:    `  {"answer": "No"}  `,
			expected: `{"answer": "No"}`,
		},
		{
			name:     "preamble",
			input:    "Here is the answer:\n{\"answer\": \"5\"}\nHope that helps",
			expected: `{"answer": "5"}`,
		},
		{
			name:     "no JSON at all",
			input:    "I cannot answer that",
			expected: "I cannot answer that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
