// Package api implements the interactive review front door using chi.
package api

import (
	"net/http"
	"time"

	"github.com/starford/govcal/internal/checksum"
)

// DefaultCookieName is the passkey cookie used when AuthConfig leaves it empty.
const DefaultCookieName = "oit_auth"

// AuthConfig controls the passkey gate.
type AuthConfig struct {
	Enabled    bool
	Passkey    string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

func (a AuthConfig) cookieName() string {
	if a.CookieName == "" {
		return DefaultCookieName
	}
	return a.CookieName
}

func (a AuthConfig) maxAge() time.Duration {
	if a.MaxAge <= 0 {
		return 7 * 24 * time.Hour
	}
	return a.MaxAge
}

// token is the cookie value: a digest of the passkey, so the passkey itself
// never sits in the browser.
func (a AuthConfig) token() string {
	return checksum.Sum([]byte(a.Passkey))
}

// PasskeyMiddleware requires the auth cookie set by the login endpoint.
// When auth is disabled every request passes through.
func PasskeyMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	want := cfg.token()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(cfg.cookieName())
			if err != nil || !checksum.Equal(c.Value, want) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
