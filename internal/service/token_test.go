package service

import (
	"errors"
	"testing"
	"time"

	"manas-backend/internal/models"
)

func TestIssueAndAuthenticateRoundTrip(t *testing.T) {
	a := NewTokenAuthenticator("secret", time.Hour)

	token, expiresAt, err := a.Issue(&models.User{ID: 42, Username: "sam", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expiry not in the future")
	}

	identity, err := a.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.UserID != 42 || identity.Username != "sam" || identity.Role != models.RoleStudent {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	a := NewTokenAuthenticator("secret", time.Hour)

	if _, err := a.Authenticate(""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestAuthenticateMalformedToken(t *testing.T) {
	a := NewTokenAuthenticator("secret", time.Hour)

	if _, err := a.Authenticate("not.a.jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestAuthenticateWrongSignature(t *testing.T) {
	a := NewTokenAuthenticator("secret", time.Hour)
	b := NewTokenAuthenticator("other-secret", time.Hour)

	token, _, err := a.Issue(&models.User{ID: 1, Username: "sam", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := b.Authenticate(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	a := NewTokenAuthenticator("secret", -time.Minute)

	token, _, err := a.Issue(&models.User{ID: 1, Username: "sam", Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := a.Authenticate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}
