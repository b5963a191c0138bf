package authcore

import (
	"context"
	"log"
	"time"
)

// UserStore persists user accounts. Implementations must enforce email
// uniqueness (on the normalized email) and surface a violation as
// ErrDuplicate; missing rows are ErrNotFound.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicate if the normalized
	// email is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SaveUser updates an existing user.
	SaveUser(ctx context.Context, user *User) error
}

// LinkStore persists federated identity links. The (provider, subject) pair
// is unique across all users; a violation at write time is ErrDuplicate.
type LinkStore interface {
	// GetLink retrieves the link for a (provider, subject) pair.
	GetLink(ctx context.Context, provider, subjectID string) (*FederatedLink, error)

	// CreateLink inserts a new link. Returns ErrDuplicate if the pair is
	// already bound to a user.
	CreateLink(ctx context.Context, link *FederatedLink) error

	// SaveLinkClaims refreshes the claims snapshot of an existing link.
	SaveLinkClaims(ctx context.Context, provider, subjectID string, claims map[string]any) error
}

// SessionRecord tracks one issued refresh token in the revocation registry.
// Only the token's identifier (the jti claim) is stored, never the token.
type SessionRecord struct {
	ID        string     `json:"id"` // jti of the refresh token
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// IsExpired reports whether the underlying refresh token has expired.
func (r *SessionRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// RevocationStore is the shared registry behind refresh-token revocation.
// Every issued refresh token is recorded here; a token is live until its
// record is marked revoked or its expiry passes.
type RevocationStore interface {
	// RecordSession registers a freshly issued refresh token as not revoked.
	RecordSession(ctx context.Context, rec *SessionRecord) error

	// GetSession retrieves the record for a token identifier. Returns
	// ErrNotFound for identifiers that were never recorded.
	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	// RevokeSession marks an identifier revoked. Revoking an already revoked
	// or unknown identifier succeeds silently.
	RevokeSession(ctx context.Context, id string) error

	// RevokeUserSessions revokes every live session of a user.
	RevokeUserSessions(ctx context.Context, userID string) error

	// ListUserSessions returns the live (non-revoked, non-expired) sessions
	// of a user.
	ListUserSessions(ctx context.Context, userID string) ([]*SessionRecord, error)

	// DeleteExpiredSessions removes records whose tokens expired before the
	// cutoff (maintenance).
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) error
}

// EmailSender dispatches outbound mail. Implementations should respect the
// context deadline; the engine treats delivery as fire-and-forget.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ConsoleEmailSender is a development implementation that logs emails to the
// console.
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("\n=== EMAIL ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Printf("Body: %s", body)
	log.Printf("=============\n")
	return nil
}
