package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// Operation is one UI interaction tried against each selector of Chain.
type Operation[T any] struct {
	Name   string
	Chain  Chain
	Policy Policy
	Do     func(ctx context.Context, selector string) (T, error)
	// Anchor reports whether the page around the target has rendered.
	// A chain that misses entirely on the first attempt while Anchor holds is a StructuralChange.
	Anchor func(ctx context.Context) bool
}

// Runner carries the logging and timing hooks shared by every Execute call.
type Runner struct {
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(r *Runner) { r.sleep = fn }
}

// WithRandom replaces the jitter source.
func WithRandom(fn func() float64) RunnerOption {
	return func(r *Runner) { r.random = fn }
}

// NewRunner creates a Runner
func NewRunner(logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		logger: logger.Named("retry"),
		sleep:  sleepCtx,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs op against its selector chain. A failing selector advances to the
// next one without consuming an attempt; once the chain is exhausted the runner
// backs off and restarts from the first selector, up to Policy.MaxAttempts passes.
// The operation is therefore called at most MaxAttempts*len(Chain) times.
//
// Each call runs on a context detached from ctx's cancellation and bounded by
// Policy.Timeout, so a shutdown request never interrupts a call halfway. ctx is
// checked between calls; on cancellation its error is returned unclassified.
func Execute[T any](ctx context.Context, r *Runner, op Operation[T]) (T, error) {
	var zero T
	if len(op.Chain) == 0 {
		return zero, &Error{Kind: types.ErrElementNotFound, Op: op.Name, Message: "empty selector chain"}
	}

	attempts := op.Policy.attempts()
	var last *Error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := op.Policy.Backoff(attempt-1, r.random())
			r.logger.Debug("retrying operation",
				zap.String("op", op.Name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			if err := r.sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		allMissing := true
		for _, sel := range op.Chain {
			if err := ctx.Err(); err != nil {
				return zero, err
			}

			callCtx, cancel := detach(ctx, op.Policy.Timeout)
			v, err := op.Do(callCtx, sel)
			cancel()
			if err == nil {
				return v, nil
			}

			e := classify(op.Name, sel, err)
			e.Attempts = attempt + 1
			if !Retryable(e.Kind) {
				r.logger.Warn("operation failed",
					zap.String("op", op.Name),
					zap.String("selector", sel),
					zap.String("kind", string(e.Kind)),
					zap.Error(err))
				return zero, e
			}
			if e.Kind != types.ErrElementNotFound {
				allMissing = false
			}
			r.logger.Debug("selector failed",
				zap.String("op", op.Name),
				zap.String("selector", sel),
				zap.String("kind", string(e.Kind)))
			last = e
		}

		if attempt == 0 && allMissing && op.Anchor != nil {
			anchorCtx, cancel := detach(ctx, op.Policy.Timeout)
			loaded := op.Anchor(anchorCtx)
			cancel()
			if loaded {
				return zero, &Error{
					Kind:     types.ErrStructuralChange,
					Op:       op.Name,
					Attempts: 1,
					Message:  "page rendered but no selector in the chain matched",
					Cause:    last,
				}
			}
		}
	}

	r.logger.Info("operation exhausted retries",
		zap.String("op", op.Name),
		zap.Int("attempts", attempts),
		zap.Int("selectors", len(op.Chain)),
		zap.String("kind", string(last.Kind)))
	last.Attempts = attempts
	return zero, last
}

// Do is Execute for operations with no result value.
func Do(ctx context.Context, r *Runner, name string, chain Chain, policy Policy, fn func(ctx context.Context, selector string) error) error {
	_, err := Execute(ctx, r, Operation[struct{}]{
		Name:   name,
		Chain:  chain,
		Policy: policy,
		Do: func(ctx context.Context, sel string) (struct{}, error) {
			return struct{}{}, fn(ctx, sel)
		},
	})
	return err
}

func classify(op, selector string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		c := *e
		if c.Op == "" {
			c.Op = op
		}
		if c.Selector == "" {
			c.Selector = selector
		}
		return &c
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: types.ErrTimeout, Op: op, Selector: selector, Cause: err}
	}
	return &Error{Kind: types.ErrElementNotFound, Op: op, Selector: selector, Cause: err}
}

func detach(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, timeout)
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
