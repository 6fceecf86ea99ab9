package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// ManualLogin lets a person resolve a verification challenge in the browser.
// It returns once they report being done.
type ManualLogin func(ctx context.Context, url string) error

// authenticate restores the persisted session when it still lands on an
// authenticated page and logs in otherwise. Cookies are persisted only after
// the landing page proves the login.
func (e *Engine) authenticate(ctx context.Context, page browser.Page) error {
	if cookies, ok := e.sessions.Restore(ctx); ok {
		err := e.restore(ctx, page, cookies)
		if err == nil {
			e.logger.Info("session restored", zap.Int("cookies", len(cookies)))
			return e.persist(ctx, page)
		}
		e.logger.Warn("persisted session rejected, logging in",
			zap.String("kind", string(types.ErrSessionRestoreFailed)),
			zap.Error(err))
		if err := e.sessions.Invalidate(ctx); err != nil {
			e.logger.Warn("failed to invalidate session", zap.Error(err))
		}
	}
	return e.login(ctx, page)
}

func (e *Engine) restore(ctx context.Context, page browser.Page, cookies []types.SessionCookie) error {
	if err := page.SetCookies(ctx, cookies); err != nil {
		return retry.Wrap(types.ErrSessionRestoreFailed, err, "failed to install cookies")
	}
	if err := e.navigate(ctx, page, e.urls.Feed); err != nil {
		return retry.Wrap(types.ErrSessionRestoreFailed, err, "failed to load feed")
	}
	if surface := e.surface(ctx, page); surface != site.SurfaceAuthenticated {
		return retry.Errorf(types.ErrSessionRestoreFailed, "restored session landed on a %s page", surface)
	}
	return nil
}

func (e *Engine) login(ctx context.Context, page browser.Page) error {
	if e.credential.Empty() {
		return fmt.Errorf("%w: no stored session and no credentials", ErrAuthentication)
	}
	e.logger.Info("logging in")

	if err := e.navigate(ctx, page, e.urls.Login); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := e.typeInto(ctx, page, "fill identity", e.selectors.LoginUsername, e.credential.Identity); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := e.typeInto(ctx, page, "fill secret", e.selectors.LoginPassword, e.credential.Secret); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if err := e.pacer.BeforeClick(ctx); err != nil {
		return err
	}
	err := retry.Do(ctx, e.runner, "submit login", e.selectors.LoginSubmit, e.opts.Click, page.Click)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	switch surface := e.awaitLanding(ctx, page); surface {
	case site.SurfaceAuthenticated:
		e.logger.Info("logged in")
		return e.persist(ctx, page)
	case site.SurfaceChallenge:
		return e.manual(ctx, page)
	default:
		return fmt.Errorf("%w: login landed on a %s page", ErrAuthentication, surface)
	}
}

// manual hands a verification challenge to a person and re-verifies afterwards
func (e *Engine) manual(ctx context.Context, page browser.Page) error {
	if e.manualLogin == nil {
		return fmt.Errorf("%w: verification challenge needs a manual login", ErrAuthentication)
	}
	url, _ := page.URL(ctx)
	e.logger.Warn("verification challenge, waiting for manual login", zap.String("url", url))
	if err := e.manualLogin(ctx, url); err != nil {
		return fmt.Errorf("%w: manual login: %w", ErrAuthentication, err)
	}
	if surface := e.awaitLanding(ctx, page); surface != site.SurfaceAuthenticated {
		return fmt.Errorf("%w: still on a %s page after manual login", ErrAuthentication, surface)
	}
	e.logger.Info("manual login verified")
	return e.persist(ctx, page)
}

// awaitLanding polls the page until it settles on an authenticated or
// challenge surface, or the login timeout passes.
func (e *Engine) awaitLanding(ctx context.Context, page browser.Page) site.Surface {
	deadline := e.clock().Add(e.opts.LoginTimeout)
	for {
		surface := e.surface(ctx, page)
		if surface == site.SurfaceAuthenticated || surface == site.SurfaceChallenge {
			return surface
		}
		if !e.clock().Before(deadline) {
			return surface
		}
		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return surface
		}
	}
}

// surface classifies the page by URL, then by challenge markup
func (e *Engine) surface(ctx context.Context, page browser.Page) site.Surface {
	url, err := page.URL(ctx)
	if err != nil {
		return site.SurfaceUnknown
	}
	surface := e.urls.Classify(url)
	if surface == site.SurfaceChallenge || surface == site.SurfaceLogin {
		return surface
	}
	for _, sel := range e.selectors.Challenge {
		if ok, err := page.Exists(ctx, sel); err == nil && ok {
			return site.SurfaceChallenge
		}
	}
	return surface
}

// persist stores the page's cookies if the page is on an authenticated surface
func (e *Engine) persist(ctx context.Context, page browser.Page) error {
	if surface := e.surface(ctx, page); surface != site.SurfaceAuthenticated {
		e.logger.Debug("not persisting session", zap.Stringer("surface", surface))
		return nil
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil
	}
	return e.sessions.Persist(ctx, cookies)
}

// persister adapts persist for the step machine's opportunistic saves
func (e *Engine) persister(page browser.Page) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return e.persist(ctx, page)
	}
}

func (e *Engine) navigate(ctx context.Context, page browser.Page, url string) error {
	return retry.Do(ctx, e.runner, "navigate", retry.Chain{url}, e.opts.Navigation, page.Navigate)
}

func (e *Engine) typeInto(ctx context.Context, page browser.Page, name string, chain retry.Chain, text string) error {
	return retry.Do(ctx, e.runner, name, chain, e.opts.Fill, func(ctx context.Context, sel string) error {
		if err := page.Clear(ctx, sel); err != nil {
			return err
		}
		return e.pacer.Type(ctx, text, func(chunk string) error {
			return page.TypeText(ctx, sel, chunk)
		})
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
