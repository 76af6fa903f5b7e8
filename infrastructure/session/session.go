package session

import (
	"net/http"
	"time"
)

const CookieName = "X-Session-Token"

// DefaultTTL applies when no session.ttl is configured.
const DefaultTTL = 12 * time.Hour

// Policy controls issued session cookies.
type Policy struct {
	TTL    time.Duration
	Secure bool
}

// Cookie builds the session cookie for value; expire clears it.
func (p Policy) Cookie(value string, expire bool) *http.Cookie {
	maxAge := int(p.ttl().Seconds())
	if expire {
		maxAge = -1
		value = ""
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   p.Secure,
	}
}

// Expiry returns the expiry for a session issued now.
func (p Policy) Expiry(now time.Time) time.Time {
	return now.Add(p.ttl())
}

func (p Policy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultTTL
	}
	return p.TTL
}
