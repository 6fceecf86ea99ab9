package behavior

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

// PacerOptions are the tunable knobs applied on top of a Profile
type PacerOptions struct {
	// Fatigue stretches delays as the session accumulates actions.
	Fatigue    bool
	MaxFatigue float64
	// TimeOfDay slows the late-night and early-morning hours.
	TimeOfDay bool

	ScrollJitter int
	// BackwardEvery triggers a small upward scroll every n passes. Zero disables it.
	BackwardEvery int
	BackwardRange IntRange

	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPacerOptions returns the stock knobs
func DefaultPacerOptions() PacerOptions {
	return PacerOptions{
		Fatigue:       true,
		MaxFatigue:    1.5,
		TimeOfDay:     true,
		ScrollJitter:  20,
		BackwardEvery: 4,
		BackwardRange: IntRange{Min: 50, Max: 150},
	}
}

// Pacer turns a Profile into waits. It is owned by the orchestrator's single
// flow and is not safe for concurrent use.
type Pacer struct {
	profile Profile
	opts    PacerOptions
	rng     *rand.Rand
	actions int
}

// NewPacer creates a Pacer for profile
func NewPacer(profile Profile, rng *rand.Rand, opts PacerOptions) *Pacer {
	if rng == nil {
		rng = NewRand()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.MaxFatigue < 1 {
		opts.MaxFatigue = 1
	}
	return &Pacer{profile: profile, opts: opts, rng: rng}
}

// Profile returns the immutable profile behind the pacer
func (p *Pacer) Profile() Profile {
	return p.profile
}

// Actions returns how many paced actions have run
func (p *Pacer) Actions() int {
	return p.actions
}

// Factor is the current multiplier applied to every delay.
func (p *Pacer) Factor() float64 {
	f := 1.0
	if p.opts.Fatigue {
		f *= math.Min(1+p.profile.FatigueRate*float64(p.actions)/100, p.opts.MaxFatigue)
	}
	if p.opts.TimeOfDay {
		f *= hourFactor(p.opts.Clock().Hour())
	}
	return f
}

func hourFactor(hour int) float64 {
	switch {
	case hour < 6:
		return 1.3
	case hour >= 22:
		return 1.15
	default:
		return 1
	}
}

// KeyDelay is the pause after typing ch at the profile's typing speed.
func (p *Pacer) KeyDelay(ch rune) time.Duration {
	wpm := p.profile.TypingSpeed
	if wpm <= 0 {
		wpm = 40
	}
	// five characters per word
	base := float64(time.Minute) / (wpm * 5)
	base *= 0.7 + p.rng.Float64()*0.6
	switch {
	case ch == ' ':
		base *= 1.2
	case unicode.IsPunct(ch):
		base *= 1.5
	case unicode.IsUpper(ch):
		base *= 1.1
	}
	return time.Duration(base * p.Factor())
}

// Type feeds text to emit one character at a time, pausing between keys.
// Field writes pass a ctx detached from shutdown so a value is never left half typed.
func (p *Pacer) Type(ctx context.Context, text string, emit func(chunk string) error) error {
	p.actions++
	for _, ch := range text {
		if err := emit(string(ch)); err != nil {
			return err
		}
		if err := p.opts.Sleep(ctx, p.KeyDelay(ch)); err != nil {
			return err
		}
	}
	return nil
}

// Think pauses before an action, occasionally hesitating for longer.
func (p *Pacer) Think(ctx context.Context) error {
	p.actions++
	d := p.uniform(100*time.Millisecond, 300*time.Millisecond)
	if p.rng.Float64() < p.profile.HesitationRate {
		d = p.uniform(500*time.Millisecond, 2*time.Second)
	}
	return p.opts.Sleep(ctx, scale(d, p.Factor()))
}

// BeforeClick is the aim time before a click. Less accurate profiles
// sometimes spend extra time correcting.
func (p *Pacer) BeforeClick(ctx context.Context) error {
	p.actions++
	d := p.uniform(150*time.Millisecond, 450*time.Millisecond)
	if p.rng.Float64() > p.profile.ClickAccuracy {
		d += p.uniform(200*time.Millisecond, 600*time.Millisecond)
	}
	return p.opts.Sleep(ctx, scale(d, p.Factor()))
}

// Read pauses for as long as reading text takes at the profile's reading
// speed, bounded to [0.5s, 8s].
func (p *Pacer) Read(ctx context.Context, text string) error {
	p.actions++
	wpm := p.profile.ReadingSpeed
	if wpm <= 0 {
		wpm = 200
	}
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / wpm * float64(time.Minute))
	d = min(max(d, 500*time.Millisecond), 8*time.Second)
	return p.opts.Sleep(ctx, scale(d, p.Factor()))
}

// Between waits a random duration in [lo, hi], stretched by the current factor.
func (p *Pacer) Between(ctx context.Context, lo, hi time.Duration) error {
	p.actions++
	return p.opts.Sleep(ctx, scale(p.uniform(lo, hi), p.Factor()))
}

// ScrollDistance draws the next downward scroll in pixels.
func (p *Pacer) ScrollDistance() int {
	r := p.profile.ScrollSpeedRange
	d := r.Min
	if r.Max > r.Min {
		d += p.rng.IntN(r.Max - r.Min + 1)
	}
	if j := p.opts.ScrollJitter; j > 0 {
		d += p.rng.IntN(2*j+1) - j
	}
	return max(d, 1)
}

// BackwardScroll returns a small upward distance on every BackwardEvery-th pass.
func (p *Pacer) BackwardScroll(pass int) (int, bool) {
	every := p.opts.BackwardEvery
	if every <= 0 || pass <= 0 || pass%every != 0 {
		return 0, false
	}
	r := p.opts.BackwardRange
	d := r.Min
	if r.Max > r.Min {
		d += p.rng.IntN(r.Max - r.Min + 1)
	}
	return max(d, 1), true
}

func (p *Pacer) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.rng.Int64N(int64(hi-lo)))
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
