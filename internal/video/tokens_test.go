package video

import (
	"testing"
	"time"
)

func TestIssuePairRoles(t *testing.T) {
	iss, err := NewIssuer("test-secret", "test")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	start := time.Now()
	end := start.Add(time.Hour)
	host, guest, err := iss.IssuePair("appt-1", "Ada", "ada@example.com", start, end)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if host == guest {
		t.Fatal("host and guest tokens must differ")
	}

	hc, err := iss.Parse(host)
	if err != nil {
		t.Fatalf("parse host: %v", err)
	}
	if hc.Room != "appt-1" || hc.Role != RoleHost {
		t.Errorf("host claims: %+v", hc)
	}
	if hc.Name != "" || hc.Email != "" {
		t.Error("host token must not carry client identity")
	}

	gc, err := iss.Parse(guest)
	if err != nil {
		t.Fatalf("parse guest: %v", err)
	}
	if gc.Role != RoleGuest || gc.Name != "Ada" || gc.Email != "ada@example.com" {
		t.Errorf("guest claims: %+v", gc)
	}
}

func TestTokenWindow(t *testing.T) {
	iss, err := NewIssuer("test-secret", "test")
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	start := time.Now()
	end := start.Add(time.Hour)
	host, _, err := iss.IssuePair("appt-1", "Ada", "ada@example.com", start, end)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	c, err := iss.Parse(host)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	nbf := c.NotBefore.Time
	exp := c.ExpiresAt.Time
	if got := start.Sub(nbf); got < 14*time.Minute || got > 16*time.Minute {
		t.Errorf("token opens %s before start", got)
	}
	if got := exp.Sub(end); got < 59*time.Minute || got > 61*time.Minute {
		t.Errorf("token outlives session by %s", got)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	iss, _ := NewIssuer("test-secret", "test")
	other, _ := NewIssuer("different-secret", "test")

	start := time.Now()
	host, _, err := iss.IssuePair("appt-1", "Ada", "ada@example.com", start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if _, err := other.Parse(host); err == nil {
		t.Fatal("expected signature mismatch")
	}
	if _, err := iss.Parse("not.a.token"); err == nil {
		t.Fatal("expected parse failure for garbage")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", "test"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
