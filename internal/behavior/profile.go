// Package behavior generates the per-process interaction profile and turns it
// into concrete delays and scroll distances.
package behavior

import (
	"math/rand/v2"
)

// Range is a closed interval [Min, Max]
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) sample(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Contains reports whether v lies in the interval
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// IntRange is a closed integer interval
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Bounds are the ranges a profile is drawn from
type Bounds struct {
	TypingWPM     Range
	ReadingWPM    Range
	Hesitation    Range
	ScrollSpeed   Range // preferred pixels per scroll step
	ScrollLimits  IntRange
	ClickAccuracy Range
	FatigueRate   Range
}

// DefaultBounds returns the stock human ranges
func DefaultBounds() Bounds {
	return Bounds{
		TypingWPM:     Range{Min: 30, Max: 60},
		ReadingWPM:    Range{Min: 150, Max: 300},
		Hesitation:    Range{Min: 0.1, Max: 0.3},
		ScrollSpeed:   Range{Min: 200, Max: 500},
		ScrollLimits:  IntRange{Min: 150, Max: 500},
		ClickAccuracy: Range{Min: 0.85, Max: 0.98},
		FatigueRate:   Range{Min: 0.01, Max: 0.05},
	}
}

// Profile holds the interaction parameters for one process lifetime.
// Treat it as read-only once generated.
type Profile struct {
	TypingSpeed      float64  `json:"typing_speed_wpm"`
	ReadingSpeed     float64  `json:"reading_speed_wpm"`
	HesitationRate   float64  `json:"hesitation_rate"`
	ScrollSpeedRange IntRange `json:"scroll_speed_range"`
	ClickAccuracy    float64  `json:"click_accuracy"`
	FatigueRate      float64  `json:"fatigue_rate"`
}

// Generate draws a profile from b. Only the distribution is fixed; rng decides the values.
func Generate(rng *rand.Rand, b Bounds) Profile {
	preferred := b.ScrollSpeed.sample(rng)
	lo := clampInt(int(preferred*0.7), b.ScrollLimits)
	hi := clampInt(int(preferred*1.3), b.ScrollLimits)
	if hi < lo {
		hi = lo
	}

	return Profile{
		TypingSpeed:      b.TypingWPM.sample(rng),
		ReadingSpeed:     b.ReadingWPM.sample(rng),
		HesitationRate:   b.Hesitation.sample(rng),
		ScrollSpeedRange: IntRange{Min: lo, Max: hi},
		ClickAccuracy:    b.ClickAccuracy.sample(rng),
		FatigueRate:      b.FatigueRate.sample(rng),
	}
}

// NewRand returns a generator seeded from the runtime's entropy
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func clampInt(v int, limits IntRange) int {
	if limits.Max > 0 && v > limits.Max {
		return limits.Max
	}
	if v < limits.Min {
		return limits.Min
	}
	return v
}
