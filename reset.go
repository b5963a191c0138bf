package authcore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default reset ticket lifetime
const TicketExpiryPasswordReset = 1 * time.Hour

// ResetTicketer issues and verifies password-reset tickets without storing
// them. A ticket is an HMAC over the user's id and a snapshot of their
// password state, prefixed with its issue timestamp. Changing the password
// moves the snapshot, so every ticket issued before the change stops
// verifying on its own; no revocation list is needed.
type ResetTicketer struct {
	// SecretKey keys the HMAC. Required.
	SecretKey string

	// TTL defaults to TicketExpiryPasswordReset.
	TTL time.Duration
}

// Issue creates a ticket for the user's current password state.
func (g *ResetTicketer) Issue(user *User) string {
	return g.issueAt(user, time.Now())
}

// Verify checks a ticket against the user's current state and the expiry
// window. Returns ErrTicketInvalid for forged, expired and stale tickets.
func (g *ResetTicketer) Verify(user *User, ticket string) error {
	tsPart, _, ok := strings.Cut(ticket, "-")
	if !ok {
		return ErrTicketInvalid
	}
	issued, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return ErrTicketInvalid
	}

	issuedAt := time.Unix(issued, 0)
	if time.Since(issuedAt) > g.ttl() || issuedAt.After(time.Now().Add(time.Minute)) {
		return ErrTicketInvalid
	}

	expected := g.issueAt(user, issuedAt)
	if !hmac.Equal([]byte(ticket), []byte(expected)) {
		return ErrTicketInvalid
	}
	return nil
}

// issueAt builds the ticket for a given issue time. Verification recomputes
// the same value from the user's current state.
func (g *ResetTicketer) issueAt(user *User, ts time.Time) string {
	tsPart := strconv.FormatInt(ts.Unix(), 36)
	mac := hmac.New(sha256.New, []byte(g.SecretKey))
	fmt.Fprintf(mac, "%s\x00%s\x00%d\x00%s", user.ID, user.PasswordHash, user.PasswordChangedAt.Unix(), tsPart)
	return tsPart + "-" + hex.EncodeToString(mac.Sum(nil))
}

func (g *ResetTicketer) ttl() time.Duration {
	if g.TTL > 0 {
		return g.TTL
	}
	return TicketExpiryPasswordReset
}
