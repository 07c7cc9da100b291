package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Transport restricts which connections a session cookie is sent over.
type Transport string

const (
	TransportHTTPS Transport = "https"
	TransportAny   Transport = "any"
)

// SameSite is the cross-site policy of a session cookie.
type SameSite string

const (
	SameSiteStrict SameSite = "strict"
	SameSiteLax    SameSite = "lax"
	SameSiteNone   SameSite = "none"
)

// CookiePolicy describes how the session cookie is written and cleared.
// Every flag is explicit; none is derived from the deployment environment.
type CookiePolicy struct {
	Name      string
	HTTPOnly  bool
	Transport Transport
	SameSite  SameSite
	Domain    string
	Path      string
}

// DefaultCookiePolicy returns the policy used when nothing is configured.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		Name:      "token",
		HTTPOnly:  true,
		Transport: TransportHTTPS,
		SameSite:  SameSiteNone,
		Path:      "/",
	}
}

// Validate rejects unknown enums and SameSite=None without HTTPS-only transport.
func (p CookiePolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("cookie name is required")
	}
	switch p.Transport {
	case TransportHTTPS, TransportAny:
	default:
		return fmt.Errorf("unknown cookie transport %q", p.Transport)
	}
	switch p.SameSite {
	case SameSiteStrict, SameSiteLax, SameSiteNone:
	default:
		return fmt.Errorf("unknown cookie samesite %q", p.SameSite)
	}
	if p.SameSite == SameSiteNone && p.Transport != TransportHTTPS {
		return fmt.Errorf("samesite=none requires https transport")
	}
	return nil
}

// Set writes the session cookie. The cookie has no Max-Age or Expires and
// lives for the browser session; the token's own expiry bounds its validity.
func (p CookiePolicy) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.cookie(token))
}

// Clear overwrites the session cookie with an empty, already expired value.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	c := p.cookie("")
	c.Expires = time.Unix(0, 0)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// Read returns the session token carried by r, or "" when absent.
func (p CookiePolicy) Read(r *http.Request) string {
	c, err := r.Cookie(p.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (p CookiePolicy) cookie(value string) *http.Cookie {
	path := p.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     p.Name,
		Value:    value,
		Path:     path,
		Domain:   p.Domain,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Transport == TransportHTTPS,
		SameSite: p.httpSameSite(),
	}
}

func (p CookiePolicy) httpSameSite() http.SameSite {
	switch p.SameSite {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteLax:
		return http.SameSiteLaxMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
