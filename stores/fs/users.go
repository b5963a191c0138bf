package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	ac "github.com/rkotari/authcore"
)

// UserStore stores users as JSON files under StoragePath. Email uniqueness
// is enforced through a separate email-index file per normalized email.
type UserStore struct {
	StoragePath string
	mu          sync.RWMutex
}

// NewUserStore creates a new file-based user store.
func NewUserStore(storagePath string) *UserStore {
	return &UserStore{StoragePath: storagePath}
}

func (s *UserStore) userPath(id string) string {
	return filepath.Join(s.StoragePath, "users", id+".json")
}

// emailPath maps a normalized email to its index file. The email is hashed
// so arbitrary addresses stay filesystem-safe.
func (s *UserStore) emailPath(email string) string {
	sum := sha256.Sum256([]byte(email))
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString(sum[:])+".json")
}

type emailIndexEntry struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

func (s *UserStore) CreateUser(ctx context.Context, user *ac.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailPath := s.emailPath(user.Email)
	if _, err := os.Stat(emailPath); err == nil {
		return ac.ErrDuplicate
	}

	if err := writeJSON(emailPath, &emailIndexEntry{Email: user.Email, UserID: user.ID}); err != nil {
		return err
	}
	return writeJSON(s.userPath(user.ID), user)
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*ac.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user ac.User
	if err := readJSON(s.userPath(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*ac.User, error) {
	s.mu.RLock()

	var entry emailIndexEntry
	if err := readJSON(s.emailPath(email), &entry); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	s.mu.RUnlock()

	return s.GetUserByID(ctx, entry.UserID)
}

func (s *UserStore) SaveUser(ctx context.Context, user *ac.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.userPath(user.ID)); err != nil {
		if os.IsNotExist(err) {
			return ac.ErrNotFound
		}
		return err
	}
	return writeJSON(s.userPath(user.ID), user)
}

// writeJSON marshals v into path, creating parent directories as needed.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// readJSON unmarshals path into v, mapping a missing file to ErrNotFound.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ac.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}
