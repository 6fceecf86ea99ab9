package answers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/apply-agent/internal/llm"
	"github.com/jonathan/apply-agent/internal/prompts"
	"github.com/jonathan/apply-agent/internal/types"
)

const (
	promptFile     = "answers.json"
	promptQuestion = "answer-question"
	// unknownAnswer is what the model returns when the facts do not support an answer
	unknownAnswer = "UNKNOWN"
	// descriptionLimit bounds the posting excerpt sent with every question
	descriptionLimit = 4000
)

// Tailor drafts answers with an LLM from the candidate facts and the posting.
type Tailor struct {
	client        llm.Client
	facts         func() string
	minConfidence float64
}

// NewTailor creates a Tailor. facts returns the candidate profile text.
func NewTailor(client llm.Client, facts func() string, minConfidence float64) *Tailor {
	if facts == nil {
		facts = func() string { return "" }
	}
	return &Tailor{client: client, facts: facts, minConfidence: minConfidence}
}

type tailoredAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Answer implements Source. File uploads are never tailored here.
func (t *Tailor) Answer(ctx context.Context, q Question, job types.JobContext) (string, bool, error) {
	if t.client == nil || q.Kind == types.StepFileUpload {
		return "", false, nil
	}

	prompt, err := prompts.Render(promptFile, promptQuestion, map[string]string{
		"Question":    q.Label,
		"Kind":        string(q.Kind),
		"Options":     optionsLine(q.Options),
		"Facts":       t.facts(),
		"Title":       job.Title,
		"Company":     job.Company,
		"Description": truncate(job.Description, descriptionLimit),
	})
	if err != nil {
		return "", false, err
	}

	tier := llm.TierLite
	if q.Kind == types.StepText && len(q.Options) == 0 {
		tier = llm.TierStandard
	}
	raw, err := t.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate answer: %w", err)
	}

	var out tailoredAnswer
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &out); err != nil {
		return "", false, fmt.Errorf("failed to parse answer: %w", err)
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" || strings.EqualFold(answer, unknownAnswer) || out.Confidence < t.minConfidence {
		return "", false, nil
	}
	return answer, true, nil
}

func optionsLine(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return "Options: " + strings.Join(options, " | ") + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
