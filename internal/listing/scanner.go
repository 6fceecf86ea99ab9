// Package listing harvests job listing ids from the site's infinite-scrolling
// search results.
package listing

import (
	"context"
	"iter"
	"time"

	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// Options control a scroll session
type Options struct {
	// SearchURL is loaded at the start of every Scan. Empty scans the current page.
	SearchURL string
	// StallPasses consecutive passes without a new id end the scan.
	StallPasses int
	// MaxPasses bounds the scroll session. Zero means no bound.
	MaxPasses int
	SettleMin time.Duration
	SettleMax time.Duration
	Policy    retry.Policy
}

// DefaultOptions returns the stock scan options
func DefaultOptions() Options {
	return Options{
		StallPasses: 3,
		MaxPasses:   60,
		SettleMin:   800 * time.Millisecond,
		SettleMax:   2 * time.Second,
		Policy:      retry.DefaultPolicy(),
	}
}

// Scanner reads listing cards from a search results page
type Scanner struct {
	page      browser.Page
	selectors site.Selectors
	urls      site.URLs
	pacer     *behavior.Pacer
	runner    *retry.Runner
	seen      *types.SeenSet
	opts      Options
	logger    *zap.Logger
}

// Config bundles the Scanner collaborators
type Config struct {
	Page      browser.Page
	Selectors site.Selectors
	URLs      site.URLs
	Pacer     *behavior.Pacer
	Runner    *retry.Runner
	// Seen is shared with the caller so ids survive a restarted scan.
	Seen    *types.SeenSet
	Options Options
	Logger  *zap.Logger
}

// NewScanner creates a Scanner
func NewScanner(cfg Config) *Scanner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Seen == nil {
		cfg.Seen = types.NewSeenSet()
	}
	if cfg.Runner == nil {
		cfg.Runner = retry.NewRunner(cfg.Logger)
	}
	if cfg.Pacer == nil {
		cfg.Pacer = behavior.NewPacer(behavior.Generate(behavior.NewRand(), behavior.DefaultBounds()), nil, behavior.DefaultPacerOptions())
	}
	if cfg.Options.StallPasses < 1 {
		cfg.Options.StallPasses = 1
	}
	return &Scanner{
		page:      cfg.Page,
		selectors: cfg.Selectors,
		urls:      cfg.URLs,
		pacer:     cfg.Pacer,
		runner:    cfg.Runner,
		seen:      cfg.Seen,
		opts:      cfg.Options,
		logger:    cfg.Logger.Named("scanner"),
	}
}

// Seen returns the shared seen-id set
func (s *Scanner) Seen() *types.SeenSet {
	return s.seen
}

type resultsView struct {
	container string
	html      string
}

// Scan starts a fresh scroll session and lazily yields up to maxItems listings
// not seen before, in render order. A non-nil error is yielded once and ends
// the sequence. The scan stops after StallPasses passes without a new id, when
// the end-of-results marker shows, or when the consumer stops pulling.
func (s *Scanner) Scan(ctx context.Context, maxItems int) iter.Seq2[types.JobListingRef, error] {
	return func(yield func(types.JobListingRef, error) bool) {
		if maxItems <= 0 {
			return
		}
		if s.opts.SearchURL != "" {
			if err := s.open(ctx); err != nil {
				yield(types.JobListingRef{}, err)
				return
			}
		}

		yielded, stalled := 0, 0
		for pass := 1; ; pass++ {
			if err := ctx.Err(); err != nil {
				yield(types.JobListingRef{}, err)
				return
			}

			view, err := s.read(ctx)
			if err != nil {
				yield(types.JobListingRef{}, err)
				return
			}
			ids, err := CardIDs(view.html, s.selectors.ResultCard)
			if err != nil {
				yield(types.JobListingRef{}, err)
				return
			}

			fresh := 0
			for _, id := range ids {
				if !s.seen.Add(id) {
					continue
				}
				fresh++
				yielded++
				ref := types.JobListingRef{
					ExternalID:          id,
					SourceURL:           s.urls.JobURL(id),
					DiscoveredAtOrdinal: s.seen.Len(),
				}
				if !yield(ref, nil) || yielded >= maxItems {
					return
				}
			}

			s.logger.Debug("scroll pass",
				zap.Int("pass", pass),
				zap.Int("rendered", len(ids)),
				zap.Int("new", fresh),
				zap.Int("yielded", yielded))

			if s.atEnd(ctx) {
				s.logger.Info("end of results reached", zap.Int("yielded", yielded))
				return
			}
			if fresh == 0 {
				stalled++
				if stalled >= s.opts.StallPasses {
					s.logger.Info("results stopped growing",
						zap.Int("passes", pass),
						zap.Int("yielded", yielded))
					return
				}
			} else {
				stalled = 0
			}
			if s.opts.MaxPasses > 0 && pass >= s.opts.MaxPasses {
				s.logger.Info("scroll pass limit reached", zap.Int("passes", pass))
				return
			}

			if err := s.scroll(ctx, view.container, pass); err != nil {
				yield(types.JobListingRef{}, err)
				return
			}
		}
	}
}

func (s *Scanner) open(ctx context.Context) error {
	return retry.Do(ctx, s.runner, "open search", retry.Chain{s.opts.SearchURL}, s.opts.Policy,
		func(ctx context.Context, url string) error {
			return s.page.Navigate(ctx, url)
		})
}

func (s *Scanner) read(ctx context.Context) (resultsView, error) {
	return retry.Execute(ctx, s.runner, retry.Operation[resultsView]{
		Name:   "read results",
		Chain:  s.selectors.ResultsList,
		Policy: s.opts.Policy,
		Do: func(ctx context.Context, sel string) (resultsView, error) {
			html, err := s.page.Snapshot(ctx, sel)
			return resultsView{container: sel, html: html}, err
		},
		Anchor: s.anyExists(s.selectors.LoggedIn),
	})
}

func (s *Scanner) atEnd(ctx context.Context) bool {
	return s.anyExists(s.selectors.EndOfResults)(ctx)
}

func (s *Scanner) anyExists(chain retry.Chain) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		for _, sel := range chain {
			if ok, err := s.page.Exists(ctx, sel); err == nil && ok {
				return true
			}
		}
		return false
	}
}

// scroll moves the list forward, sometimes steps back a little, then lets the
// virtualized list settle.
func (s *Scanner) scroll(ctx context.Context, container string, pass int) error {
	scrollBy := func(dy int) error {
		return retry.Do(ctx, s.runner, "scroll results", retry.Chain{container}, s.opts.Policy,
			func(ctx context.Context, sel string) error {
				return s.page.ScrollBy(ctx, sel, dy)
			})
	}

	if err := scrollBy(s.pacer.ScrollDistance()); err != nil {
		return err
	}
	if back, ok := s.pacer.BackwardScroll(pass); ok {
		if err := s.pacer.Think(ctx); err != nil {
			return err
		}
		if err := scrollBy(-back); err != nil {
			return err
		}
	}
	return s.pacer.Between(ctx, s.opts.SettleMin, s.opts.SettleMax)
}
