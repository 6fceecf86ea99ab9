package types

import "time"

// SessionCredential is the identity/secret pair used for an interactive login.
// It is held in memory only and never written next to the cookie file.
type SessionCredential struct {
	Identity string `json:"-"`
	Secret   string `json:"-"`
}

// Empty reports whether either half of the credential is missing.
func (c SessionCredential) Empty() bool {
	return c.Identity == "" || c.Secret == ""
}

// SessionCookie is one persisted browser cookie
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 or negative for session cookies
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Expired reports whether the cookie has a fixed expiry that lies before now.
func (c SessionCookie) Expired(now time.Time) bool {
	if c.Expires <= 0 {
		return false
	}
	return float64(now.Unix()) >= c.Expires
}

// LiveCookies returns the cookies that have not expired at now.
func LiveCookies(cookies []SessionCookie, now time.Time) []SessionCookie {
	live := make([]SessionCookie, 0, len(cookies))
	for _, c := range cookies {
		if !c.Expired(now) {
			live = append(live, c)
		}
	}
	return live
}
