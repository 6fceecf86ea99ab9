// Package retry wraps UI interactions with ordered selector fallbacks,
// bounded retries with backoff, and the typed failure taxonomy.
package retry

import (
	"math"
	"time"
)

// Chain is an ordered list of alternative CSS selectors for one element.
type Chain []string

// Policy bounds one kind of operation (click, fill, wait-for-navigation).
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	// Jitter is the fraction of each delay that is randomized away.
	// 0.5 draws the actual delay from [0.5*d, d].
	Jitter float64
	// Timeout bounds a single underlying call. Zero leaves the call bounded only by ctx.
	Timeout time.Duration
}

// DefaultPolicy is three attempts one second apart, doubling, with a 5s call timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          30 * time.Second,
		Jitter:            0.5,
		Timeout:           5 * time.Second,
	}
}

// Backoff returns the delay before retry n (n=0 is the first retry):
// BaseDelay * BackoffMultiplier^n, capped at MaxDelay, with jitter applied from r in [0,1).
func (p Policy) Backoff(n int, r float64) time.Duration {
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		j := math.Min(p.Jitter, 1)
		d *= 1 - j*r
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
