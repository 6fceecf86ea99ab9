// Package monitor watches the browser process and reports when it has gone.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/apply-agent/internal/browser"
	"go.uber.org/zap"
)

// ErrBrowserLost is returned by Run once the failure threshold is reached.
var ErrBrowserLost = errors.New("browser lost")

// Options tune the liveness checks
type Options struct {
	Interval  time.Duration
	Threshold int
	Warmup    time.Duration
	Timeout   time.Duration
}

// DefaultOptions returns a 5s interval with 5 consecutive failures and a 15s warmup.
func DefaultOptions() Options {
	return Options{
		Interval:  5 * time.Second,
		Threshold: 5,
		Warmup:    15 * time.Second,
		Timeout:   3 * time.Second,
	}
}

// Monitor polls a Prober until the browser is observed dead.
type Monitor struct {
	probe  browser.Prober
	opts   Options
	logger *zap.Logger
	tick   func(time.Duration) (<-chan time.Time, func())
}

// Option configures a Monitor
type Option func(*Monitor)

// WithTicker replaces the interval source.
func WithTicker(tick func(time.Duration) (<-chan time.Time, func())) Option {
	return func(m *Monitor) { m.tick = tick }
}

// New creates a monitor
func New(probe browser.Prober, opts Options, logger *zap.Logger, options ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Threshold < 1 {
		opts.Threshold = 1
	}
	m := &Monitor{
		probe:  probe,
		opts:   opts,
		logger: logger,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Run blocks until ctx is cancelled (returning nil) or the browser has
// failed Threshold consecutive checks (returning ErrBrowserLost). A check
// fails when the probe errors or reports zero live contexts.
func (m *Monitor) Run(ctx context.Context) error {
	if m.opts.Warmup > 0 {
		warm := time.NewTimer(m.opts.Warmup)
		select {
		case <-ctx.Done():
			warm.Stop()
			return nil
		case <-warm.C:
		}
	}

	ticks, stop := m.tick(m.opts.Interval)
	defer stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}

		if m.check(ctx) {
			if failures > 0 {
				m.logger.Debug("browser check recovered", zap.Int("after_failures", failures))
			}
			failures = 0
			continue
		}
		failures++
		m.logger.Warn("browser check failed",
			zap.Int("consecutive", failures),
			zap.Int("threshold", m.opts.Threshold))
		if failures >= m.opts.Threshold {
			m.logger.Error("browser lost, requesting shutdown")
			return ErrBrowserLost
		}
	}
}

func (m *Monitor) check(ctx context.Context) bool {
	cctx := ctx
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}
	n, err := m.probe.LiveContexts(cctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		m.logger.Debug("liveness probe error", zap.Error(err))
		return false
	}
	return n > 0
}
