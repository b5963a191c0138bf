package authcore

import (
	"errors"
	"fmt"
)

// Business-rule failures. Engine operations return exactly one of these (or a
// *ValidationError); infrastructure faults are wrapped with ErrUnavailable so
// callers can tell a retryable outage apart from a definitive rejection.
var (
	// ErrDuplicateEmail is returned when a registration (or a federated
	// signup racing with one) collides with an existing account.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers every password-login rejection: unknown
	// email, deactivated account, passwordless account, wrong password.
	// Callers must never learn which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrClaimsInvalid means the identity provider token could not be
	// verified or its payload had an unexpected shape.
	ErrClaimsInvalid = errors.New("provider claims invalid")

	// ErrMissingEmailClaim means the provider verified the token but the
	// claims carried no email address.
	ErrMissingEmailClaim = errors.New("provider claims missing email")

	// ErrTokenInvalid covers malformed, tampered and expired session tokens.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenRevoked means a well-formed refresh token whose identifier has
	// been revoked.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTicketInvalid covers expired, forged and state-stale reset tickets.
	ErrTicketInvalid = errors.New("reset ticket invalid or expired")

	// ErrWeakPassword is returned when a password fails the configured policy.
	ErrWeakPassword = errors.New("password too weak")

	// ErrUserNotFound is returned by flows addressed to an explicit user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnavailable wraps infrastructure faults (store unreachable, verifier
	// timed out). Retryable at the caller's discretion.
	ErrUnavailable = errors.New("service unavailable")
)

// Store-level sentinels. Store implementations surface uniqueness violations
// and missing rows with these; the engine maps them to the taxonomy above.
var (
	ErrDuplicate = errors.New("duplicate record")
	ErrNotFound  = errors.New("record not found")
)

// ValidationError reports missing or malformed request input. The client must
// correct the named field and resubmit.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a request-validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// unavailable wraps an infrastructure fault so errors.Is(err, ErrUnavailable)
// holds while the underlying cause stays inspectable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
