package site

import (
	"fmt"
	"net/url"
	"strings"
)

// Surface classifies where a navigation landed
type Surface int

const (
	SurfaceUnknown Surface = iota
	SurfaceAuthenticated
	SurfaceChallenge
	SurfaceLogin
)

func (s Surface) String() string {
	switch s {
	case SurfaceAuthenticated:
		return "authenticated"
	case SurfaceChallenge:
		return "challenge"
	case SurfaceLogin:
		return "login"
	default:
		return "unknown"
	}
}

// URLs are the site's entry points and landing-page patterns
type URLs struct {
	Base  string
	Login string
	Feed  string
	// JobView is a format string taking the external id.
	JobView string

	AuthenticatedPaths []string
	ChallengePaths     []string
	LoginPaths         []string
}

// DefaultURLs returns the built-in URLs for base (e.g. https://www.linkedin.com)
func DefaultURLs(base string) URLs {
	base = strings.TrimRight(base, "/")
	return URLs{
		Base:               base,
		Login:              base + "/login",
		Feed:               base + "/feed/",
		JobView:            base + "/jobs/view/%s/",
		AuthenticatedPaths: []string{"/feed", "/in/", "/jobs", "/mynetwork"},
		ChallengePaths:     []string{"checkpoint", "challenge", "captcha"},
		LoginPaths:         []string{"/login", "/uas/login", "/authwall", "/signup"},
	}
}

// Classify maps a landing URL to a Surface. Challenge patterns win over login
// patterns, which win over authenticated ones.
func (u URLs) Classify(raw string) Surface {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return SurfaceUnknown
	}
	path := strings.ToLower(parsed.Path)

	for _, p := range u.ChallengePaths {
		if strings.Contains(path, p) {
			return SurfaceChallenge
		}
	}
	for _, p := range u.LoginPaths {
		if strings.Contains(path, p) {
			return SurfaceLogin
		}
	}
	for _, p := range u.AuthenticatedPaths {
		if strings.Contains(path, p) {
			return SurfaceAuthenticated
		}
	}
	return SurfaceUnknown
}

// JobURL returns the detail page for an external id
func (u URLs) JobURL(id string) string {
	return fmt.Sprintf(u.JobView, url.PathEscape(id))
}

// SameSite reports whether raw points at the configured base host.
func (u URLs) SameSite(raw string) bool {
	a, err := url.Parse(raw)
	if err != nil {
		return false
	}
	b, err := url.Parse(u.Base)
	if err != nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}
