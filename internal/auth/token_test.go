package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	claims := Claims{
		ProfileID: "01J8ZQ2M9",
		Email:     "Member@Example.COM",
		UID:       42,
		Roles:     RoleList{"user"},
	}
	raw, expiresAt, err := tokens.Issue(claims)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	got, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ProfileID != "01J8ZQ2M9" {
		t.Fatalf("unexpected profile id: %s", got.ProfileID)
	}
	if got.Email != "member@example.com" {
		t.Fatalf("email was not normalized: %s", got.Email)
	}
	if got.UID != 42 {
		t.Fatalf("unexpected uid: %d", got.UID)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "user" {
		t.Fatalf("roles were not preserved: %v", got.Roles)
	}
	if got.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tokens, err := NewTokens("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	tokens.WithClock(func() time.Time { return clock })

	raw, _, err := tokens.Issue(Claims{ProfileID: "p-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = start.Add(2 * time.Hour)
	if _, err := tokens.Verify(raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	tokens, err := NewTokens("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	raw, _, err := tokens.Issue(Claims{ProfileID: "p-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := raw[:len(raw)-2] + "xx"
	if _, err := tokens.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issued, _ := NewTokens("secret-a", time.Hour)
	verifier, _ := NewTokens("secret-b", time.Hour)

	raw, _, err := issued.Issue(Claims{ProfileID: "p-1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsTokenWithoutIdentity(t *testing.T) {
	tokens, err := NewTokens("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	raw, _, err := tokens.Issue(Claims{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty identity, got %v", err)
	}
}

func TestVerifyAcceptsEmailOnlyToken(t *testing.T) {
	tokens, err := NewTokens("secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	raw, _, err := tokens.Issue(Claims{Email: "legacy@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Email != "legacy@example.com" || got.ProfileID != "" {
		t.Fatalf("unexpected claims: %+v", got)
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("   ", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
