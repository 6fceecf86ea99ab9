package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// ChromePage is a Page backed by one chromedp tab
type ChromePage struct {
	tab    context.Context
	close  context.CancelFunc
	logger *zap.Logger
}

var (
	_ Page = (*ChromePage)(nil)
	_ Tabs = (*Chrome)(nil)
)

// Close closes the tab
func (p *ChromePage) Close() {
	p.close()
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := boundTo(p.tab, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// boundTo derives a context from a chromedp context that also ends with ctx's
// deadline or cancellation.
func boundTo(parent, ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(parent)
	cancelDeadline := context.CancelFunc(func() {})
	if deadline, ok := ctx.Deadline(); ok {
		bound, cancelDeadline = context.WithDeadline(bound, deadline)
	}
	stop := context.AfterFunc(ctx, cancel)
	return bound, func() {
		stop()
		cancelDeadline()
		cancel()
	}
}

// Navigate loads url and waits for the body to be ready
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("navigate", zap.String("url", url))
	return opError("navigate", url, p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	))
}

// URL returns the current location
func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", opError("location", "", err)
	}
	return loc, nil
}

// Exists implements Page
func (p *ChromePage) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return false, opError("query", selector, err)
	}
	return len(nodes) > 0, nil
}

func (p *ChromePage) mustExist(ctx context.Context, op, selector string) error {
	ok, err := p.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return opError(op, selector, ErrNotFound)
	}
	return nil
}

// WaitVisible implements Page
func (p *ChromePage) WaitVisible(ctx context.Context, selector string) error {
	return opError("wait visible", selector, p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)))
}

// Snapshot implements Page
func (p *ChromePage) Snapshot(ctx context.Context, selector string) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.Evaluate(snapshotJS(selector), &html)); err != nil {
		return "", opError("snapshot", selector, err)
	}
	if html == "" {
		return "", opError("snapshot", selector, ErrNotFound)
	}
	return html, nil
}

// Click implements Page
func (p *ChromePage) Click(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, "click", selector); err != nil {
		return err
	}
	return opError("click", selector, p.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	))
}

// TypeText implements Page
func (p *ChromePage) TypeText(ctx context.Context, selector, text string) error {
	if err := p.mustExist(ctx, "type", selector); err != nil {
		return err
	}
	return opError("type", selector, p.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery)))
}

// Clear selects the element's content and deletes it with a key press so
// framework listeners see the change.
func (p *ChromePage) Clear(ctx context.Context, selector string) error {
	if err := p.mustExist(ctx, "clear", selector); err != nil {
		return err
	}
	var found bool
	return opError("clear", selector, p.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.Evaluate(selectAllJS(selector), &found),
		chromedp.KeyEvent(kb.Backspace),
	))
}

// SelectOption picks the option whose value or visible text equals value
func (p *ChromePage) SelectOption(ctx context.Context, selector, value string) error {
	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(selectJS(selector, value), &ok)); err != nil {
		return opError("select", selector, err)
	}
	if !ok {
		return opError("select", selector, fmt.Errorf("%w: option %q", ErrNotFound, value))
	}
	return nil
}

// SetChecked implements Page
func (p *ChromePage) SetChecked(ctx context.Context, selector string, checked bool) error {
	var state string
	if err := p.run(ctx, chromedp.Evaluate(checkJS(selector, checked), &state)); err != nil {
		return opError("check", selector, err)
	}
	switch {
	case state == "missing":
		return opError("check", selector, ErrNotFound)
	case (state == "checked") != checked:
		return opError("check", selector, fmt.Errorf("state did not change to %t", checked))
	}
	return nil
}

// Upload implements Page
func (p *ChromePage) Upload(ctx context.Context, selector, path string) error {
	if err := p.mustExist(ctx, "upload", selector); err != nil {
		return err
	}
	return opError("upload", selector, p.run(ctx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery)))
}

// ScrollBy implements Page
func (p *ChromePage) ScrollBy(ctx context.Context, container string, dy int) error {
	var top float64
	return opError("scroll", container, p.run(ctx, chromedp.Evaluate(scrollJS(container, dy), &top)))
}

// Cookies returns every cookie in the browser
func (p *ChromePage) Cookies(ctx context.Context) ([]types.SessionCookie, error) {
	var out []types.SessionCookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		out = fromNetworkCookies(cookies)
		return nil
	}))
	if err != nil {
		return nil, opError("get cookies", "", err)
	}
	return out, nil
}

// SetCookies installs cookies into the browser
func (p *ChromePage) SetCookies(ctx context.Context, cookies []types.SessionCookie) error {
	params := toCookieParams(cookies)
	return opError("set cookies", "", p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	})))
}
