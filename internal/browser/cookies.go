package browser

import (
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/jonathan/apply-agent/internal/types"
)

func fromNetworkCookies(in []*network.Cookie) []types.SessionCookie {
	out := make([]types.SessionCookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		sc := types.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		}
		if !c.Session {
			sc.Expires = c.Expires
		}
		out = append(out, sc)
	}
	return out
}

func toCookieParams(in []types.SessionCookie) []*network.CookieParam {
	out := make([]*network.CookieParam, 0, len(in))
	for _, c := range in {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if p.Path == "" {
			p.Path = "/"
		}
		switch c.SameSite {
		case "Strict":
			p.SameSite = network.CookieSameSiteStrict
		case "Lax":
			p.SameSite = network.CookieSameSiteLax
		case "None":
			p.SameSite = network.CookieSameSiteNone
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			t := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &t
		}
		out = append(out, p)
	}
	return out
}
