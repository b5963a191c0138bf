package authcore

import "context"

// Claims are the verified identity attributes returned by a federated
// identity provider. The shape is fixed: provider responses that cannot be
// mapped onto it are rejected at the verifier boundary as ErrClaimsInvalid
// rather than flowing through the engine as open-ended maps.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Audience      string `json:"aud"`
}

// Snapshot returns the claims as a map for storage on a federated link.
func (c *Claims) Snapshot() map[string]any {
	return map[string]any{
		"sub":            c.Subject,
		"email":          c.Email,
		"email_verified": c.EmailVerified,
		"given_name":     c.GivenName,
		"family_name":    c.FamilyName,
		"picture":        c.Picture,
		"aud":            c.Audience,
	}
}

// ClaimsVerifier exchanges a provider token for verified claims. The call is
// a trusted external dependency: implementations must enforce the expected
// audience, honor the context deadline and return ErrClaimsInvalid for any
// token they cannot positively verify.
type ClaimsVerifier interface {
	Verify(ctx context.Context, providerToken string) (*Claims, error)
}
