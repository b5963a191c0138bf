package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	ac "github.com/rkotari/authcore"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	store := NewUserStore(t.TempDir())
	ctx := context.Background()

	user := &ac.User{
		ID:        "u-1",
		Email:     "jane@example.com",
		FirstName: "Jane",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byID, err := store.GetUserByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != "jane@example.com" || byID.FirstName != "Jane" {
		t.Errorf("unexpected user: %+v", byID)
	}

	byEmail, err := store.GetUserByEmail(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != "u-1" {
		t.Errorf("expected u-1, got %q", byEmail.ID)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStoreDuplicateEmail(t *testing.T) {
	store := NewUserStore(t.TempDir())
	ctx := context.Background()

	if err := store.CreateUser(ctx, &ac.User{ID: "u-1", Email: "dup@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := store.CreateUser(ctx, &ac.User{ID: "u-2", Email: "dup@example.com"})
	if !errors.Is(err, ac.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserStoreSave(t *testing.T) {
	store := NewUserStore(t.TempDir())
	ctx := context.Background()

	user := &ac.User{ID: "u-1", Email: "jane@example.com"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user.Bio = "updated"
	if err := store.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	got, err := store.GetUserByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Bio != "updated" {
		t.Errorf("expected updated bio, got %q", got.Bio)
	}

	if err := store.SaveUser(ctx, &ac.User{ID: "ghost"}); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestLinkStore(t *testing.T) {
	store := NewLinkStore(t.TempDir())
	ctx := context.Background()

	link := &ac.FederatedLink{
		Provider:  "google",
		SubjectID: "goog-1",
		UserID:    "u-1",
		Claims:    map[string]any{"email": "jane@example.com"},
		CreatedAt: time.Now(),
	}
	if err := store.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	if err := store.CreateLink(ctx, &ac.FederatedLink{Provider: "google", SubjectID: "goog-1", UserID: "u-2"}); !errors.Is(err, ac.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for the same (provider, subject) pair, got %v", err)
	}

	got, err := store.GetLink(ctx, "google", "goog-1")
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if got.UserID != "u-1" {
		t.Errorf("expected u-1, got %q", got.UserID)
	}

	if err := store.SaveLinkClaims(ctx, "google", "goog-1", map[string]any{"email": "new@example.com"}); err != nil {
		t.Fatalf("SaveLinkClaims failed: %v", err)
	}
	got, err = store.GetLink(ctx, "google", "goog-1")
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	if email, _ := got.Claims["email"].(string); email != "new@example.com" {
		t.Errorf("claims not refreshed, got %v", got.Claims)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("UpdatedAt should move forward on claims refresh")
	}

	if _, err := store.GetLink(ctx, "google", "missing"); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.SaveLinkClaims(ctx, "google", "missing", nil); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevocationStoreLifecycle(t *testing.T) {
	store := NewRevocationStore(t.TempDir())
	ctx := context.Background()
	now := time.Now()

	rec := &ac.SessionRecord{ID: "jti-1", UserID: "u-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.RecordSession(ctx, rec); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Revoked {
		t.Error("fresh session should not be revoked")
	}

	if err := store.RevokeSession(ctx, "jti-1"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if err := store.RevokeSession(ctx, "jti-1"); err != nil {
		t.Fatalf("second RevokeSession should be a no-op, got %v", err)
	}
	if err := store.RevokeSession(ctx, "unknown"); err != nil {
		t.Fatalf("revoking an unknown id should succeed silently, got %v", err)
	}

	got, err = store.GetSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.Revoked || got.RevokedAt == nil {
		t.Errorf("session should be revoked with a timestamp: %+v", got)
	}

	if _, err := store.GetSession(ctx, "unknown"); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevocationStorePerUser(t *testing.T) {
	store := NewRevocationStore(t.TempDir())
	ctx := context.Background()
	now := time.Now()

	records := []*ac.SessionRecord{
		{ID: "a", UserID: "u-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "b", UserID: "u-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "expired", UserID: "u-1", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{ID: "other", UserID: "u-2", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, rec := range records {
		if err := store.RecordSession(ctx, rec); err != nil {
			t.Fatalf("RecordSession failed: %v", err)
		}
	}

	live, err := store.ListUserSessions(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListUserSessions failed: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 live sessions for u-1, got %d", len(live))
	}

	if err := store.RevokeUserSessions(ctx, "u-1"); err != nil {
		t.Fatalf("RevokeUserSessions failed: %v", err)
	}
	live, err = store.ListUserSessions(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListUserSessions failed: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("expected no live sessions after revoke, got %d", len(live))
	}

	// Other users stay live.
	live, err = store.ListUserSessions(ctx, "u-2")
	if err != nil {
		t.Fatalf("ListUserSessions failed: %v", err)
	}
	if len(live) != 1 {
		t.Errorf("expected u-2 session untouched, got %d", len(live))
	}
}

func TestRevocationStoreDeleteExpired(t *testing.T) {
	store := NewRevocationStore(t.TempDir())
	ctx := context.Background()
	now := time.Now()

	if err := store.RecordSession(ctx, &ac.SessionRecord{ID: "old", UserID: "u-1", ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}
	if err := store.RecordSession(ctx, &ac.SessionRecord{ID: "new", UserID: "u-1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	if err := store.DeleteExpiredSessions(ctx, now); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "old"); !errors.Is(err, ac.ErrNotFound) {
		t.Errorf("expired session should be gone, got %v", err)
	}
	if _, err := store.GetSession(ctx, "new"); err != nil {
		t.Errorf("live session should remain, got %v", err)
	}
}
