package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Options configures the Chrome process
type Options struct {
	Headless     bool
	UserDataDir  string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// DefaultOptions returns a headed 1366x768 window
func DefaultOptions() Options {
	return Options{
		WindowWidth:  1366,
		WindowHeight: 768,
	}
}

// hideWebdriver runs before any page script on every document of a tab.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Chrome owns one browser process and its tabs.
type Chrome struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// Launch starts Chrome. The process lives until Close or until ctx is cancelled.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	// the first Run starts the process and opens the initial tab
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("browser started", zap.Bool("headless", opts.Headless))

	return &Chrome{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		logger: logger,
	}, nil
}

// NewPage opens a new tab in the same browser (sharing cookies).
func (c *Chrome) NewPage() (*ChromePage, error) {
	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &ChromePage{tab: tabCtx, close: cancel, logger: c.logger}, nil
}

// Tab implements Tabs
func (c *Chrome) Tab() (Page, func(), error) {
	p, err := c.NewPage()
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// LiveContexts counts open page targets. It fails once the connection is gone.
func (c *Chrome) LiveContexts(ctx context.Context) (int, error) {
	if err := c.browserCtx.Err(); err != nil {
		return 0, err
	}
	probeCtx, cancel := boundTo(c.browserCtx, ctx)
	defer cancel()
	infos, err := chromedp.Targets(probeCtx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("failed to list targets: %w", err)
	}
	n := 0
	for _, info := range infos {
		if info.Type == "page" {
			n++
		}
	}
	return n, ctx.Err()
}

// Close shuts the browser down
func (c *Chrome) Close() error {
	c.cancel()
	c.logger.Info("browser closed")
	return nil
}
