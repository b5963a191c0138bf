package authcore_test

import (
	"errors"
	"testing"
	"time"

	ac "github.com/rkotari/authcore"
)

func testResetUser() *ac.User {
	return &ac.User{
		ID:                "user-1",
		Email:             "jane@example.com",
		PasswordHash:      "$2a$10$somebcryptdigest",
		PasswordChangedAt: time.Now().Add(-24 * time.Hour),
	}
}

func TestResetTicketRoundtrip(t *testing.T) {
	g := &ac.ResetTicketer{SecretKey: "reset-secret"}
	user := testResetUser()

	ticket := g.Issue(user)
	if err := g.Verify(user, ticket); err != nil {
		t.Fatalf("freshly issued ticket should verify, got %v", err)
	}
}

func TestResetTicketRejections(t *testing.T) {
	g := &ac.ResetTicketer{SecretKey: "reset-secret"}
	user := testResetUser()
	ticket := g.Issue(user)

	otherUser := testResetUser()
	otherUser.ID = "user-2"

	changed := testResetUser()
	changed.PasswordHash = "$2a$10$anotherdigest"
	changed.PasswordChangedAt = time.Now()

	tests := []struct {
		name   string
		user   *ac.User
		ticket string
	}{
		{"empty ticket", user, ""},
		{"no separator", user, "abcdef"},
		{"bad timestamp", user, "!!!-abcdef"},
		{"forged hmac", user, ticket[:len(ticket)-4] + "0000"},
		{"different user", otherUser, ticket},
		{"password changed since issue", changed, ticket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.Verify(tt.user, tt.ticket); !errors.Is(err, ac.ErrTicketInvalid) {
				t.Errorf("expected ErrTicketInvalid, got %v", err)
			}
		})
	}
}

func TestResetTicketExpiry(t *testing.T) {
	g := &ac.ResetTicketer{SecretKey: "reset-secret", TTL: 1 * time.Second}
	user := testResetUser()

	ticket := g.Issue(user)
	if err := g.Verify(user, ticket); err != nil {
		t.Fatalf("ticket should verify inside the window, got %v", err)
	}

	// Shrink the window below the ticket's age instead of sleeping.
	late := &ac.ResetTicketer{SecretKey: "reset-secret", TTL: 1 * time.Nanosecond}
	time.Sleep(10 * time.Millisecond)
	if err := late.Verify(user, ticket); !errors.Is(err, ac.ErrTicketInvalid) {
		t.Errorf("expected ErrTicketInvalid after expiry, got %v", err)
	}
}

func TestResetTicketBoundToSecret(t *testing.T) {
	user := testResetUser()
	ticket := (&ac.ResetTicketer{SecretKey: "secret-a"}).Issue(user)

	other := &ac.ResetTicketer{SecretKey: "secret-b"}
	if err := other.Verify(user, ticket); !errors.Is(err, ac.ErrTicketInvalid) {
		t.Errorf("ticket keyed by another secret should not verify, got %v", err)
	}
}
