package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCookiePolicy_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *CookiePolicy)
		wantErr bool
	}{
		{"default", func(p *CookiePolicy) {}, false},
		{"lax over any", func(p *CookiePolicy) { p.SameSite = SameSiteLax; p.Transport = TransportAny }, false},
		{"none over any", func(p *CookiePolicy) { p.Transport = TransportAny }, true},
		{"unknown transport", func(p *CookiePolicy) { p.Transport = "tls" }, true},
		{"unknown samesite", func(p *CookiePolicy) { p.SameSite = "maybe" }, true},
		{"empty name", func(p *CookiePolicy) { p.Name = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := DefaultCookiePolicy()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCookiePolicy_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		policy       CookiePolicy
		wantSecure   bool
		wantHTTPOnly bool
		wantSameSite http.SameSite
	}{
		{
			name:         "default",
			policy:       DefaultCookiePolicy(),
			wantSecure:   true,
			wantHTTPOnly: true,
			wantSameSite: http.SameSiteNoneMode,
		},
		{
			name: "script readable lax over any transport",
			policy: CookiePolicy{
				Name:      "token",
				HTTPOnly:  false,
				Transport: TransportAny,
				SameSite:  SameSiteLax,
			},
			wantSecure:   false,
			wantHTTPOnly: false,
			wantSameSite: http.SameSiteLaxMode,
		},
		{
			name: "strict",
			policy: CookiePolicy{
				Name:      "token",
				HTTPOnly:  true,
				Transport: TransportHTTPS,
				SameSite:  SameSiteStrict,
			},
			wantSecure:   true,
			wantHTTPOnly: true,
			wantSameSite: http.SameSiteStrictMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			tt.policy.Set(rec, "abc.def.ghi")

			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("Expected 1 cookie, got %d", len(cookies))
			}
			c := cookies[0]

			if c.Name != "token" || c.Value != "abc.def.ghi" {
				t.Errorf("Cookie = %s=%s", c.Name, c.Value)
			}
			if c.Secure != tt.wantSecure {
				t.Errorf("Secure = %v, want %v", c.Secure, tt.wantSecure)
			}
			if c.HttpOnly != tt.wantHTTPOnly {
				t.Errorf("HttpOnly = %v, want %v", c.HttpOnly, tt.wantHTTPOnly)
			}
			if c.SameSite != tt.wantSameSite {
				t.Errorf("SameSite = %v, want %v", c.SameSite, tt.wantSameSite)
			}
			if c.Path != "/" {
				t.Errorf("Path = %q, want /", c.Path)
			}
			if c.MaxAge != 0 || !c.Expires.IsZero() {
				t.Error("Session cookie must not carry Max-Age or Expires")
			}
		})
	}
}

func TestCookiePolicy_Clear(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	DefaultCookiePolicy().Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]

	if c.Value != "" {
		t.Errorf("Cleared cookie value = %q, want empty", c.Value)
	}
	if c.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", c.MaxAge)
	}
	if !c.Expires.Before(time.Unix(1, 0)) {
		t.Errorf("Expires = %v, want the epoch", c.Expires)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("Cleared cookie must keep HttpOnly and Secure")
	}
}

func TestCookiePolicy_Read(t *testing.T) {
	t.Parallel()

	p := DefaultCookiePolicy()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := p.Read(req); got != "" {
		t.Errorf("Read without cookie = %q, want empty", got)
	}

	req.AddCookie(&http.Cookie{Name: "token", Value: "xyz"})
	if got := p.Read(req); got != "xyz" {
		t.Errorf("Read = %q, want xyz", got)
	}
}
