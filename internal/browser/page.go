// Package browser drives a real Chrome instance through chromedp and exposes
// the narrow Page interface the automation core is written against.
package browser

import (
	"context"
	"errors"

	"github.com/jonathan/apply-agent/internal/types"
)

// ErrNotFound is returned when a selector matches nothing on the page.
var ErrNotFound = errors.New("element not found")

// Page is one browser tab. Every method blocks until the page reports
// completion or ctx expires.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)

	// Exists checks for a match without waiting.
	Exists(ctx context.Context, selector string) (bool, error)
	// WaitVisible waits until selector is visible or ctx expires.
	WaitVisible(ctx context.Context, selector string) error
	// Snapshot returns the outer HTML of the first match with live form
	// state (values, checked, selected) copied into attributes.
	Snapshot(ctx context.Context, selector string) (string, error)

	Click(ctx context.Context, selector string) error
	// TypeText sends text as key events to the element, appending to its value.
	TypeText(ctx context.Context, selector, text string) error
	Clear(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	Upload(ctx context.Context, selector, path string) error
	// ScrollBy scrolls container (or the document when it does not scroll) by dy pixels.
	ScrollBy(ctx context.Context, container string, dy int) error

	Cookies(ctx context.Context) ([]types.SessionCookie, error)
	SetCookies(ctx context.Context, cookies []types.SessionCookie) error
}

// Prober reports how many live page targets the browser still has.
type Prober interface {
	LiveContexts(ctx context.Context) (int, error)
}

// Tabs opens pages in one running browser
type Tabs interface {
	Prober
	// Tab opens a new page. The returned func closes it.
	Tab() (Page, func(), error)
}
