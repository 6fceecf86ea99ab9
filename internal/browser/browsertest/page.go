// Package browsertest provides an in-memory browser.Page backed by static
// HTML, for testing automation logic without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/types"
)

// Page is a fake browser.Page. Hooks run without the page lock held, so they
// may call SetHTML and SetURL to simulate the site reacting.
type Page struct {
	mu      sync.Mutex
	url     string
	html    string
	cookies []types.SessionCookie

	OnNavigate func(p *Page, url string) error
	OnClick    func(p *Page, selector string) error
	OnScroll   func(p *Page, dy int) error

	// Fail injects errors keyed by "method selector", e.g. "click #next".
	Fail map[string]error

	Navigations []string
	Clicks      []string
	Typed       map[string]string
	Cleared     []string
	Selected    map[string]string
	Checked     map[string]bool
	Uploads     map[string]string
	Scrolls     []int
	CookieSets  int
}

var _ browser.Page = (*Page)(nil)

// New creates a page showing html at url
func New(url, html string) *Page {
	return &Page{
		url:      url,
		html:     html,
		Fail:     make(map[string]error),
		Typed:    make(map[string]string),
		Selected: make(map[string]string),
		Checked:  make(map[string]bool),
		Uploads:  make(map[string]string),
	}
}

// SetHTML replaces the document
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// HTML returns the document
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html
}

// SetURL moves the page to url without recording a navigation
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// SetBrowserCookies seeds the cookie jar
func (p *Page) SetBrowserCookies(cookies []types.SessionCookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append([]types.SessionCookie(nil), cookies...)
}

func (p *Page) failure(method, selector string) error {
	if err, ok := p.Fail[strings.TrimSpace(method+" "+selector)]; ok {
		return err
	}
	return nil
}

func (p *Page) find(selector string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return &goquery.Selection{}
	}
	return doc.Find(selector)
}

func (p *Page) present(method, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(method, selector); err != nil {
		return err
	}
	if p.find(selector).Length() == 0 {
		return fmt.Errorf("%s %s: %w", method, selector, browser.ErrNotFound)
	}
	return nil
}

// Navigate implements browser.Page
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	if err := p.failure("navigate", url); err != nil {
		p.mu.Unlock()
		return err
	}
	p.Navigations = append(p.Navigations, url)
	p.url = url
	hook := p.OnNavigate
	p.mu.Unlock()

	if hook != nil {
		return hook(p, url)
	}
	return ctx.Err()
}

// URL implements browser.Page
func (p *Page) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// Exists implements browser.Page
func (p *Page) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("exists", selector); err != nil {
		return false, err
	}
	return p.find(selector).Length() > 0, nil
}

// WaitVisible implements browser.Page. It does not wait: absent means not found.
func (p *Page) WaitVisible(_ context.Context, selector string) error {
	return p.present("wait", selector)
}

// Snapshot implements browser.Page
func (p *Page) Snapshot(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("snapshot", selector); err != nil {
		return "", err
	}
	sel := p.find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("snapshot %s: %w", selector, browser.ErrNotFound)
	}
	return goquery.OuterHtml(sel)
}

// Click implements browser.Page
func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.present("click", selector); err != nil {
		return err
	}
	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		return hook(p, selector)
	}
	return nil
}

// TypeText implements browser.Page
func (p *Page) TypeText(_ context.Context, selector, text string) error {
	if err := p.present("type", selector); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typed[selector] += text
	return nil
}

// Clear implements browser.Page
func (p *Page) Clear(_ context.Context, selector string) error {
	if err := p.present("clear", selector); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cleared = append(p.Cleared, selector)
	delete(p.Typed, selector)
	return nil
}

// SelectOption implements browser.Page
func (p *Page) SelectOption(_ context.Context, selector, value string) error {
	if err := p.present("select", selector); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Selected[selector] = value
	return nil
}

// SetChecked implements browser.Page
func (p *Page) SetChecked(_ context.Context, selector string, checked bool) error {
	if err := p.present("check", selector); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Checked[selector] = checked
	return nil
}

// Upload implements browser.Page
func (p *Page) Upload(_ context.Context, selector, path string) error {
	if err := p.present("upload", selector); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Uploads[selector] = path
	return nil
}

// ScrollBy implements browser.Page
func (p *Page) ScrollBy(_ context.Context, _ string, dy int) error {
	p.mu.Lock()
	if err := p.failure("scroll", ""); err != nil {
		p.mu.Unlock()
		return err
	}
	p.Scrolls = append(p.Scrolls, dy)
	hook := p.OnScroll
	p.mu.Unlock()

	if hook != nil {
		return hook(p, dy)
	}
	return nil
}

// Cookies implements browser.Page
func (p *Page) Cookies(_ context.Context) ([]types.SessionCookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("cookies", ""); err != nil {
		return nil, err
	}
	return append([]types.SessionCookie(nil), p.cookies...), nil
}

// SetCookies implements browser.Page
func (p *Page) SetCookies(_ context.Context, cookies []types.SessionCookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("setcookies", ""); err != nil {
		return err
	}
	p.CookieSets++
	p.cookies = append([]types.SessionCookie(nil), cookies...)
	return nil
}
