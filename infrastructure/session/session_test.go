package session

import (
	"testing"
	"time"
)

func TestPolicyCookie(t *testing.T) {
	p := Policy{TTL: time.Hour, Secure: true}

	c := p.Cookie("tok", false)
	if c.Name != CookieName || c.Value != "tok" || c.MaxAge != 3600 || !c.Secure || !c.HttpOnly {
		t.Fatalf("unexpected cookie: %+v", c)
	}

	cleared := p.Cookie("tok", true)
	if cleared.Value != "" || cleared.MaxAge != -1 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
}

func TestPolicyExpiryDefaultsTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if got := (Policy{}).Expiry(now); !got.Equal(now.Add(DefaultTTL)) {
		t.Fatalf("expected default ttl expiry, got %v", got)
	}
}
