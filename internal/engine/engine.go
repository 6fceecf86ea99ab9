// Package engine runs the automation end to end: it establishes an
// authenticated session, scans listings lazily, applies to each in turn,
// and reports one outcome per listing. A liveness monitor runs alongside;
// losing the browser or a shutdown request ends the run after the current step.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/apply-agent/internal/apply"
	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/db"
	"github.com/jonathan/apply-agent/internal/listing"
	"github.com/jonathan/apply-agent/internal/monitor"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options tune the run
type Options struct {
	MaxItems int
	// BetweenMin and BetweenMax bound the pause between listings.
	BetweenMin time.Duration
	BetweenMax time.Duration
	Monitoring bool
	// Grace is how long a shutdown waits for the current step before forcing exit.
	Grace        time.Duration
	LoginTimeout time.Duration
	PollInterval time.Duration

	Navigation retry.Policy
	Click      retry.Policy
	Fill       retry.Policy
}

// DefaultOptions returns the stock run options
func DefaultOptions() Options {
	nav := retry.DefaultPolicy()
	nav.Timeout = 30 * time.Second
	fill := retry.DefaultPolicy()
	fill.Timeout = time.Minute
	return Options{
		MaxItems:     25,
		BetweenMin:   5 * time.Second,
		BetweenMax:   15 * time.Second,
		Monitoring:   true,
		Grace:        10 * time.Second,
		LoginTimeout: 2 * time.Minute,
		PollInterval: time.Second,
		Navigation:   nav,
		Click:        retry.DefaultPolicy(),
		Fill:         fill,
	}
}

// Config bundles the Engine collaborators. History, Answers, Renderer and
// ManualLogin are optional.
type Config struct {
	Browser    browser.Tabs
	Sessions   session.Store
	History    db.Store
	Credential types.SessionCredential

	Selectors site.Selectors
	URLs      site.URLs
	Pacer     *behavior.Pacer
	Runner    *retry.Runner

	Answers  apply.Answerer
	Renderer apply.Renderer

	Listing listing.Options
	Apply   apply.Options
	Monitor monitor.Options
	Options Options

	ManualLogin ManualLogin
	// Force is called when a shutdown outlives the grace window.
	Force func()

	Logger      *zap.Logger
	Clock       func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
	NewRunID    func() uuid.UUID
	MonitorOpts []monitor.Option
}

// Engine is the orchestrator
type Engine struct {
	browser     browser.Tabs
	sessions    session.Store
	history     db.Store
	credential  types.SessionCredential
	selectors   site.Selectors
	urls        site.URLs
	pacer       *behavior.Pacer
	runner      *retry.Runner
	answers     apply.Answerer
	renderer    apply.Renderer
	listingOpts listing.Options
	applyOpts   apply.Options
	monitor     *monitor.Monitor
	opts        Options
	manualLogin ManualLogin
	force       func()
	logger      *zap.Logger
	clock       func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	newRunID    func() uuid.UUID
}

// New creates an Engine
func New(cfg Config) (*Engine, error) {
	if cfg.Browser == nil {
		return nil, fmt.Errorf("engine requires a browser")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("engine requires a session store")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.New
	}
	if cfg.Runner == nil {
		cfg.Runner = retry.NewRunner(cfg.Logger)
	}
	if cfg.Pacer == nil {
		cfg.Pacer = behavior.NewPacer(behavior.Generate(behavior.NewRand(), behavior.DefaultBounds()), nil, behavior.DefaultPacerOptions())
	}
	if cfg.Options.PollInterval <= 0 {
		cfg.Options.PollInterval = time.Second
	}

	logger := cfg.Logger.Named("engine")
	return &Engine{
		browser:     cfg.Browser,
		sessions:    cfg.Sessions,
		history:     cfg.History,
		credential:  cfg.Credential,
		selectors:   cfg.Selectors,
		urls:        cfg.URLs,
		pacer:       cfg.Pacer,
		runner:      cfg.Runner,
		answers:     cfg.Answers,
		renderer:    cfg.Renderer,
		listingOpts: cfg.Listing,
		applyOpts:   cfg.Apply,
		monitor:     monitor.New(cfg.Browser, cfg.Monitor, cfg.Logger, cfg.MonitorOpts...),
		opts:        cfg.Options,
		manualLogin: cfg.ManualLogin,
		force:       cfg.Force,
		logger:      logger,
		clock:       cfg.Clock,
		sleep:       cfg.Sleep,
		newRunID:    cfg.NewRunID,
	}, nil
}

// Login establishes an authenticated session and persists it, without
// scanning or applying.
func (e *Engine) Login(ctx context.Context) error {
	page, closeTab, err := e.browser.Tab()
	if err != nil {
		return fmt.Errorf("failed to open tab: %w", err)
	}
	defer closeTab()
	return e.authenticate(ctx, page)
}

// Run executes one full run. The report is returned even when err is not nil
// and holds one outcome per listing processed.
func (e *Engine) Run(ctx context.Context) (*types.Report, error) {
	report := &types.Report{RunID: e.newRunID(), StartedAt: e.clock()}
	logger := e.logger.With(zap.String("run", report.RunID.String()))
	logger.Info("run started", zap.Int("max_items", e.opts.MaxItems))

	if e.history != nil {
		if err := e.history.CreateRun(ctx, report.RunID, report.StartedAt); err != nil {
			logger.Warn("failed to record run start", zap.Error(err))
		}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	done := make(chan struct{})
	g.Go(func() error {
		// the monitor has nothing left to watch once the loop is over
		defer cancelRun()
		defer close(done)
		return e.loop(gctx, report)
	})
	if e.opts.Monitoring {
		g.Go(func() error {
			return e.monitor.Run(gctx)
		})
	}

	// A shutdown request or a lost browser both cancel gctx; either way the
	// loop gets the grace window to finish its step before force is called.
	go func() {
		select {
		case <-gctx.Done():
		case <-done:
			return
		}
		select {
		case <-done:
			return
		default:
		}
		logger.Info("stopping, finishing the current step", zap.NamedError("cause", context.Cause(gctx)))
		monitor.AwaitShutdown(done, e.opts.Grace, e.force, logger)
	}()

	err := g.Wait()
	report.FinishedAt = e.clock()

	status := db.RunStatusCompleted
	switch {
	case err != nil:
		status = db.RunStatusFailed
	case ctx.Err() != nil:
		status = db.RunStatusInterrupted
	}
	if e.history != nil {
		if herr := e.history.CompleteRun(context.WithoutCancel(ctx), report.RunID, status); herr != nil {
			logger.Warn("failed to record run completion", zap.Error(herr))
		}
	}

	counts := report.Counts()
	logger.Info("run finished",
		zap.String("status", status),
		zap.Int("listings", len(report.Outcomes)),
		zap.Int("submitted", counts[types.ResultSubmitted]),
		zap.Int("failed", counts[types.ResultFailed]))
	return report, err
}

// loop authenticates, then scans and applies until the scan ends or ctx is done.
func (e *Engine) loop(ctx context.Context, report *types.Report) error {
	searchTab, closeSearch, err := e.browser.Tab()
	if err != nil {
		return fmt.Errorf("failed to open search tab: %w", err)
	}
	defer closeSearch()

	if err := e.authenticate(ctx, searchTab); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	jobTab, closeJob, err := e.browser.Tab()
	if err != nil {
		return fmt.Errorf("failed to open job tab: %w", err)
	}
	defer closeJob()

	scanner := listing.NewScanner(listing.Config{
		Page:      searchTab,
		Selectors: e.selectors,
		URLs:      e.urls,
		Pacer:     e.pacer,
		Runner:    e.runner,
		Seen:      types.NewSeenSet(),
		Options:   e.listingOpts,
		Logger:    e.logger,
	})
	machine := apply.NewMachine(apply.Config{
		Page:      jobTab,
		Selectors: e.selectors,
		URLs:      e.urls,
		Pacer:     e.pacer,
		Runner:    e.runner,
		Answers:   e.answers,
		Renderer:  e.renderer,
		Persist:   e.persister(jobTab),
		Options:   e.applyOpts,
		Logger:    e.logger,
		Clock:     e.clock,
	})

	defer func() {
		final, cancel := e.finalContext(ctx)
		defer cancel()
		if err := e.persist(final, searchTab); err != nil {
			e.logger.Warn("final session persist failed", zap.Error(err))
		}
	}()

	first := true
	for ref, err := range scanner.Scan(ctx, e.opts.MaxItems) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &ScanError{Message: "listing scan failed", Cause: err}
		}
		if !first {
			// cut short by cancellation, after which Apply reports the listing abandoned
			_ = e.pacer.Between(ctx, e.opts.BetweenMin, e.opts.BetweenMax)
		}
		first = false

		out := e.process(ctx, machine, ref)
		e.record(ctx, report, out)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (e *Engine) process(ctx context.Context, machine *apply.Machine, ref types.JobListingRef) types.ApplicationOutcome {
	if e.history != nil {
		applied, err := e.history.HasApplied(ctx, ref.ExternalID)
		if err != nil {
			e.logger.Warn("history lookup failed", zap.String("listing", ref.ExternalID), zap.Error(err))
		}
		if applied {
			out := types.Skipped(ref, "already applied")
			out.CompletedAt = e.clock()
			return out
		}
	}
	return machine.Apply(ctx, ref)
}

func (e *Engine) record(ctx context.Context, report *types.Report, out types.ApplicationOutcome) {
	report.Outcomes = append(report.Outcomes, out)
	if e.history == nil {
		return
	}
	if err := e.history.SaveOutcome(context.WithoutCancel(ctx), report.RunID, out); err != nil {
		e.logger.Warn("failed to record outcome", zap.String("listing", out.Listing.ExternalID), zap.Error(err))
	}
}

// finalContext outlives ctx's cancellation but not the grace window
func (e *Engine) finalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Grace <= 0 {
		return context.WithCancel(context.WithoutCancel(ctx))
	}
	return context.WithTimeout(context.WithoutCancel(ctx), e.opts.Grace)
}

// IsBrowserLost reports whether a run ended because the browser died
func IsBrowserLost(err error) bool {
	return errors.Is(err, monitor.ErrBrowserLost)
}
