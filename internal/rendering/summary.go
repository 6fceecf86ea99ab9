package rendering

import (
	"context"
	"fmt"

	"github.com/jonathan/apply-agent/internal/llm"
	"github.com/jonathan/apply-agent/internal/prompts"
	"github.com/jonathan/apply-agent/internal/types"
)

// LLMSummary drafts the summary paragraph with client from the candidate facts.
func LLMSummary(client llm.Client, facts func() string) SummaryFunc {
	return func(ctx context.Context, job types.JobContext) (string, error) {
		prompt, err := prompts.Render("answers.json", "resume-summary", map[string]string{
			"Facts":       facts(),
			"Title":       job.Title,
			"Company":     job.Company,
			"Description": job.Description,
		})
		if err != nil {
			return "", err
		}
		summary, err := client.GenerateContent(ctx, prompt, llm.TierStandard)
		if err != nil {
			return "", fmt.Errorf("failed to generate summary: %w", err)
		}
		return summary, nil
	}
}
