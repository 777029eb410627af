// Package session holds the platform credential set, its file-backed store,
// and the probe that classifies whether a session is still authenticated.
package session

import (
	"net/http"
	"strings"
	"time"
)

// DefaultDomain is the cookie domain every platform credential is scoped to.
const DefaultDomain = ".toutiao.com"

// Cookie is one named credential entry.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
}

// Valid reports whether the entry can be transplanted into a browser or an
// HTTP cookie jar: it needs a name and a domain inside the platform.
func (c Cookie) Valid() bool {
	return c.Name != "" && InPlatformDomain(c.Domain)
}

// Session is the set of credential cookies for the platform account plus the
// moment they were captured. A Session without cookies is logged out.
type Session struct {
	Cookies    []Cookie
	CapturedAt time.Time
}

// Empty reports whether the session holds no credentials.
func (s Session) Empty() bool {
	return len(s.Cookies) == 0
}

// Scoped returns a copy of the session restricted to platform-domain cookies.
// Entries without a domain are assumed to belong to DefaultDomain.
func (s Session) Scoped() Session {
	out := Session{CapturedAt: s.CapturedAt}
	for _, c := range s.Cookies {
		if c.Domain == "" {
			c.Domain = DefaultDomain
		}
		if c.Valid() {
			out.Cookies = append(out.Cookies, c)
		}
	}
	return out
}

// HTTPCookies converts the session into net/http cookies.
func (s Session) HTTPCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return cookies
}

// InPlatformDomain reports whether domain is toutiao.com or one of its subdomains.
func InPlatformDomain(domain string) bool {
	d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	return d == "toutiao.com" || strings.HasSuffix(d, ".toutiao.com")
}
