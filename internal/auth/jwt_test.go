package auth_test

import (
	"testing"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/auth"
	"github.com/Reinhardt254/online-bookstore/internal/domain/user"
)

func testUser() user.User {
	first := "Ada"
	return user.User{
		ID:        42,
		Email:     "ada@example.com",
		FirstName: &first,
		Role:      "user",
	}
}

func TestManagerRoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	token, err := m.Generate(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("decode subject: %v", err)
	}

	if id != 42 {
		t.Fatalf("subject mismatch: got %d want 42", id)
	}

	if claims.Email != "ada@example.com" {
		t.Fatalf("email claim mismatch: %q", claims.Email)
	}

	if claims.FirstName != "Ada" {
		t.Fatalf("firstName claim mismatch: %q", claims.FirstName)
	}

	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		t.Fatalf("expiry %v not after issued-at %v", claims.ExpiresAt, claims.IssuedAt)
	}
}

func TestManagerRejectsExpiredToken(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)

	token, err := m.Generate(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestManagerRejectsWrongSecret(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	other := auth.NewManager("other-secret", time.Hour)

	token, err := m.Generate(testUser())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected token signed with a different secret to fail")
	}
}

func TestManagerRejectsGarbage(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	if _, err := m.Verify("not.a.token"); err == nil {
		t.Fatal("expected malformed token to fail")
	}
}
