package authcore

import (
	"strings"
	"time"
)

// User is a local account. Email is the unique lookup key and is always
// stored normalized (see NormalizeEmail). An empty PasswordHash means the
// account has no usable password credential (federated-only accounts);
// such accounts can never pass password login.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Role         string    `json:"role"`
	AvatarURL    string    `json:"avatar"`
	Bio          string    `json:"bio"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"date_joined"`

	// PasswordChangedAt moves whenever the password credential changes and
	// anchors reset-ticket invalidation. Zero for accounts that have never
	// had a password.
	PasswordChangedAt time.Time `json:"-"`
}

// HasPassword reports whether the user has a usable password credential.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// FederatedLink binds one (provider, subject) pair from an identity provider
// to exactly one local user. The pair is unique across all users. Claims
// holds a snapshot of the last verified provider claims and is refreshed on
// every federated login.
type FederatedLink struct {
	Provider  string         `json:"provider"`
	SubjectID string         `json:"subject_id"`
	UserID    string         `json:"user_id"`
	Claims    map[string]any `json:"claims"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched. Email is intentionally absent: it is the account's identity key
// and does not change through profile updates.
type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Role      *string `json:"role"`
	AvatarURL *string `json:"avatar"`
	Bio       *string `json:"bio"`
}

// NormalizeEmail canonicalizes an email for storage and comparison. Emails
// differing only in case refer to the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
