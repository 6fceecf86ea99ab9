// Package answers supplies values for application form questions. Sources are
// consulted in order: the user's answer bank, keyword defaults, then the LLM.
// A question no source can answer stays unanswered; nothing here guesses.
package answers

import (
	"context"
	"strings"

	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// Question is one form field as the answer sources see it
type Question struct {
	Label    string
	Kind     types.StepKind
	Options  []string
	Required bool
}

// Source answers questions. ok is false when the source has no answer.
type Source interface {
	Answer(ctx context.Context, q Question, job types.JobContext) (answer string, ok bool, err error)
}

// Normalize folds a label into a lookup key: lower case, single spaces, no
// required-marker asterisk or trailing punctuation.
func Normalize(label string) string {
	label = strings.ToLower(strings.Join(strings.Fields(label), " "))
	return strings.TrimRight(label, " *?:.")
}

// MatchOption returns the option equal to answer, ignoring case and spacing.
func MatchOption(options []string, answer string) (string, bool) {
	want := Normalize(answer)
	for _, o := range options {
		if Normalize(o) == want {
			return o, true
		}
	}
	return "", false
}

// Chain asks each source in order and returns the first answer. Answers from
// learnable sources are written to the bank when one is set.
type Chain struct {
	sources   []Source
	learnable map[int]bool
	bank      *Bank
	logger    *zap.Logger
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithLearning stores answers from learnable sources in bank.
func WithLearning(bank *Bank) ChainOption {
	return func(c *Chain) { c.bank = bank }
}

// WithChainLogger sets the logger
func WithChainLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// NewChain creates an empty chain
func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{learnable: make(map[int]bool), logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.Named("answers")
	return c
}

// Add appends a source. Learnable sources produce answers worth keeping.
func (c *Chain) Add(s Source, learnable bool) *Chain {
	if s == nil {
		return c
	}
	c.learnable[len(c.sources)] = learnable
	c.sources = append(c.sources, s)
	return c
}

// Answer implements Source. A failing source is logged and skipped.
func (c *Chain) Answer(ctx context.Context, q Question, job types.JobContext) (string, bool, error) {
	for i, s := range c.sources {
		answer, ok, err := s.Answer(ctx, q, job)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			c.logger.Warn("answer source failed", zap.String("question", q.Label), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if len(q.Options) > 0 {
			matched, found := MatchOption(q.Options, answer)
			if !found {
				c.logger.Debug("answer matches no option",
					zap.String("question", q.Label),
					zap.Strings("options", q.Options))
				continue
			}
			answer = matched
		}
		if c.learnable[i] && c.bank != nil {
			c.bank.Remember(q.Label, answer)
			if err := c.bank.Save(); err != nil {
				c.logger.Warn("failed to save learned answer", zap.Error(err))
			}
		}
		return answer, true, nil
	}
	return "", false, nil
}
