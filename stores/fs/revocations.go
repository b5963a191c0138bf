package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ac "github.com/rkotari/authcore"
)

// RevocationStore stores session records as JSON files, one per refresh
// token identifier.
type RevocationStore struct {
	StoragePath string
	mu          sync.RWMutex
}

// NewRevocationStore creates a new file-based revocation registry.
func NewRevocationStore(storagePath string) *RevocationStore {
	return &RevocationStore{StoragePath: storagePath}
}

func (s *RevocationStore) sessionDir() string {
	return filepath.Join(s.StoragePath, "sessions")
}

func (s *RevocationStore) sessionPath(id string) string {
	return filepath.Join(s.sessionDir(), id+".json")
}

func (s *RevocationStore) RecordSession(ctx context.Context, rec *ac.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.sessionPath(rec.ID), rec)
}

func (s *RevocationStore) GetSession(ctx context.Context, id string) (*ac.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec ac.SessionRecord
	if err := readJSON(s.sessionPath(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RevocationStore) RevokeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(id)
	var rec ac.SessionRecord
	if err := readJSON(path, &rec); err != nil {
		if err == ac.ErrNotFound {
			return nil // idempotent
		}
		return err
	}
	if rec.Revoked {
		return nil
	}
	now := time.Now()
	rec.Revoked = true
	rec.RevokedAt = &now
	return writeJSON(path, &rec)
}

func (s *RevocationStore) RevokeUserSessions(ctx context.Context, userID string) error {
	recs, err := s.scan(func(r *ac.SessionRecord) bool {
		return r.UserID == userID && !r.Revoked
	})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := s.RevokeSession(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *RevocationStore) ListUserSessions(ctx context.Context, userID string) ([]*ac.SessionRecord, error) {
	return s.scan(func(r *ac.SessionRecord) bool {
		return r.UserID == userID && !r.Revoked && !r.IsExpired()
	})
}

func (s *RevocationStore) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) error {
	recs, err := s.scan(func(r *ac.SessionRecord) bool {
		return r.ExpiresAt.Before(cutoff)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if err := os.Remove(s.sessionPath(rec.ID)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// scan reads every session record and returns those matching the filter.
func (s *RevocationStore) scan(match func(*ac.SessionRecord) bool) ([]*ac.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.sessionDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*ac.SessionRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var rec ac.SessionRecord
		if err := readJSON(filepath.Join(s.sessionDir(), entry.Name()), &rec); err != nil {
			continue
		}
		if match(&rec) {
			out = append(out, &rec)
		}
	}
	return out, nil
}
