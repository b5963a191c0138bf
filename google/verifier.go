// Package google implements the Google side of federated login: an ID-token
// claims verifier for the authcore engine plus the browser OAuth2 redirect
// flow that produces those ID tokens.
package google

import (
	"context"
	"fmt"

	ac "github.com/rkotari/authcore"
	"google.golang.org/api/idtoken"
)

// Provider is the name the verifier registers under in Engine.Verifiers.
const Provider = "google"

// validateFunc matches idtoken.Validate; swappable in tests.
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier verifies Google ID tokens and maps their payload onto the fixed
// authcore.Claims shape. Tokens whose audience does not match are rejected.
type Verifier struct {
	// Audience is the OAuth2 client id the tokens must be issued for.
	// Required.
	Audience string

	validate validateFunc
}

// NewVerifier creates a Verifier for the given client id.
func NewVerifier(audience string) *Verifier {
	return &Verifier{Audience: audience, validate: idtoken.Validate}
}

// Verify validates an ID token against Google's signing keys and the
// configured audience. Any verification failure or unexpectedly shaped
// payload is authcore.ErrClaimsInvalid.
func (v *Verifier) Verify(ctx context.Context, providerToken string) (*ac.Claims, error) {
	validate := v.validate
	if validate == nil {
		validate = idtoken.Validate
	}

	payload, err := validate(ctx, providerToken, v.Audience)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("google verify: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ac.ErrClaimsInvalid, err)
	}
	return claimsFromPayload(payload)
}

// claimsFromPayload maps an ID-token payload to authcore.Claims, rejecting
// payloads without a subject.
func claimsFromPayload(payload *idtoken.Payload) (*ac.Claims, error) {
	if payload == nil || payload.Subject == "" {
		return nil, ac.ErrClaimsInvalid
	}

	claims := &ac.Claims{
		Subject:  payload.Subject,
		Audience: payload.Audience,
	}
	claims.Email, _ = payload.Claims["email"].(string)
	claims.GivenName, _ = payload.Claims["given_name"].(string)
	claims.FamilyName, _ = payload.Claims["family_name"].(string)
	claims.Picture, _ = payload.Claims["picture"].(string)
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		claims.EmailVerified = verified
	}
	return claims, nil
}
