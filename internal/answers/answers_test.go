package answers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	answer string
	ok     bool
	err    error
	calls  int
}

func (s *staticSource) Answer(context.Context, Question, types.JobContext) (string, bool, error) {
	s.calls++
	return s.answer, s.ok, s.err
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Do you require visa sponsorship?", "do you require visa sponsorship"},
		{"  First   Name *", "first name"},
		{"Years of experience:", "years of experience"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Yes", "No", "Prefer not to say"}

	got, ok := MatchOption(options, " yes ")
	require.True(t, ok)
	assert.Equal(t, "Yes", got)

	got, ok = MatchOption(options, "prefer NOT to say")
	require.True(t, ok)
	assert.Equal(t, "Prefer not to say", got)

	_, ok = MatchOption(options, "Maybe")
	assert.False(t, ok)
}

func TestChain_Order(t *testing.T) {
	first := &staticSource{}
	second := &staticSource{answer: "No", ok: true}
	third := &staticSource{answer: "Yes", ok: true}

	c := NewChain().Add(first, false).Add(second, false).Add(third, true)
	answer, ok, err := c.Answer(context.Background(), Question{Label: "Sponsorship?"}, types.JobContext{})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "No", answer)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, third.calls)
}

func TestChain_SkipsFailingAndNonMatchingSources(t *testing.T) {
	failing := &staticSource{err: errors.New("quota exceeded")}
	offList := &staticSource{answer: "Maybe", ok: true}
	good := &staticSource{answer: "no", ok: true}

	c := NewChain().Add(failing, true).Add(offList, false).Add(good, false)
	answer, ok, err := c.Answer(context.Background(),
		Question{Label: "Sponsorship?", Kind: types.StepRadio, Options: []string{"Yes", "No"}}, types.JobContext{})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "No", answer, "answer is mapped onto the option text")
}

func TestChain_NoAnswer(t *testing.T) {
	c := NewChain().Add(&staticSource{}, false).Add(nil, true)
	_, ok, err := c.Answer(context.Background(), Question{Label: "Favourite colour"}, types.JobContext{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChain_LearnsFromLearnableSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	bank := NewBank(path)
	c := NewChain(WithLearning(bank)).
		Add(bank, false).
		Add(&staticSource{answer: "5", ok: true}, true)

	q := Question{Label: "How many years of Go experience do you have?", Kind: types.StepText}
	answer, ok, err := c.Answer(context.Background(), q, types.JobContext{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5", answer)

	reloaded, err := LoadBank(path)
	require.NoError(t, err)
	got, ok, err := reloaded.Answer(context.Background(), q, types.JobContext{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5", got)
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewChain().Add(&staticSource{err: context.Canceled}, false)

	_, ok, err := c.Answer(ctx, Question{Label: "x"}, types.JobContext{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
