package authcore

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and verifies salted one-way password digests using
// bcrypt. The zero value is ready to use with bcrypt.DefaultCost.
type PasswordHasher struct {
	// Cost overrides the bcrypt cost factor. Zero means bcrypt.DefaultCost.
	Cost int
}

// Hash computes a salted digest of plaintext. Empty plaintext is rejected;
// policy checks beyond that belong to PasswordPolicy.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", NewValidationError("password", "password must not be empty")
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. The comparison
// is constant time.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// dummyDigest is compared against on login paths that have no real credential
// so every rejection costs one bcrypt verification.
var dummyDigest, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)

// burnVerification performs a throwaway bcrypt comparison.
func (h *PasswordHasher) burnVerification(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(plaintext))
}

// PasswordPolicy decides what counts as an acceptable password. Apps can
// tighten it with extra checks; the engine maps any rejection to
// ErrWeakPassword.
type PasswordPolicy struct {
	// MinLength is the minimum password length. Zero means 8.
	MinLength int

	// Checks are extra validators run after the length check. A non-nil
	// error rejects the password; its message is shown to the client.
	Checks []func(password string) error
}

// DefaultPasswordPolicy returns the policy used when the engine has none
// configured.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{MinLength: 8}
}

// Validate checks a candidate password against the policy.
func (p *PasswordPolicy) Validate(password string) error {
	minLen := p.MinLength
	if minLen == 0 {
		minLen = 8
	}
	if len(password) < minLen {
		return ErrWeakPassword
	}
	for _, check := range p.Checks {
		if err := check(password); err != nil {
			return ErrWeakPassword
		}
	}
	return nil
}
