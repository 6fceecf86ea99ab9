package behavior

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_WithinBounds(t *testing.T) {
	b := DefaultBounds()

	for seed := uint64(0); seed < 200; seed++ {
		p := Generate(rand.New(rand.NewPCG(seed, seed*7+1)), b)

		assert.True(t, b.TypingWPM.Contains(p.TypingSpeed), "typing %v", p.TypingSpeed)
		assert.True(t, b.ReadingWPM.Contains(p.ReadingSpeed), "reading %v", p.ReadingSpeed)
		assert.True(t, b.Hesitation.Contains(p.HesitationRate), "hesitation %v", p.HesitationRate)
		assert.True(t, b.ClickAccuracy.Contains(p.ClickAccuracy), "accuracy %v", p.ClickAccuracy)
		assert.True(t, b.FatigueRate.Contains(p.FatigueRate), "fatigue %v", p.FatigueRate)

		assert.GreaterOrEqual(t, p.ScrollSpeedRange.Min, b.ScrollLimits.Min)
		assert.LessOrEqual(t, p.ScrollSpeedRange.Max, b.ScrollLimits.Max)
		assert.LessOrEqual(t, p.ScrollSpeedRange.Min, p.ScrollSpeedRange.Max)
	}
}

func TestGenerate_SameSeedSameProfile(t *testing.T) {
	a := Generate(rand.New(rand.NewPCG(1, 2)), DefaultBounds())
	b := Generate(rand.New(rand.NewPCG(1, 2)), DefaultBounds())
	assert.Equal(t, a, b)
}

func TestGenerate_DegenerateRange(t *testing.T) {
	b := DefaultBounds()
	b.TypingWPM = Range{Min: 45, Max: 45}

	p := Generate(rand.New(rand.NewPCG(3, 4)), b)
	assert.Equal(t, 45.0, p.TypingSpeed)
}

func TestClampInt(t *testing.T) {
	limits := IntRange{Min: 150, Max: 500}
	assert.Equal(t, 150, clampInt(100, limits))
	assert.Equal(t, 500, clampInt(900, limits))
	assert.Equal(t, 320, clampInt(320, limits))
}
