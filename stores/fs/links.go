package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	ac "github.com/rkotari/authcore"
)

// LinkStore stores federated identity links as JSON files, one per
// (provider, subject) pair.
type LinkStore struct {
	StoragePath string
	mu          sync.RWMutex
}

// NewLinkStore creates a new file-based link store.
func NewLinkStore(storagePath string) *LinkStore {
	return &LinkStore{StoragePath: storagePath}
}

func (s *LinkStore) linkPath(provider, subjectID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", provider, subjectID)))
	return filepath.Join(s.StoragePath, "links", hex.EncodeToString(sum[:])+".json")
}

func (s *LinkStore) GetLink(ctx context.Context, provider, subjectID string) (*ac.FederatedLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var link ac.FederatedLink
	if err := readJSON(s.linkPath(provider, subjectID), &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *LinkStore) CreateLink(ctx context.Context, link *ac.FederatedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.linkPath(link.Provider, link.SubjectID)
	if _, err := os.Stat(path); err == nil {
		return ac.ErrDuplicate
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = link.CreatedAt
	}
	return writeJSON(path, link)
}

func (s *LinkStore) SaveLinkClaims(ctx context.Context, provider, subjectID string, claims map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.linkPath(provider, subjectID)
	var link ac.FederatedLink
	if err := readJSON(path, &link); err != nil {
		return err
	}
	link.Claims = claims
	link.UpdatedAt = time.Now()
	return writeJSON(path, &link)
}
