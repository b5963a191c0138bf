package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token expiry durations
const (
	TokenExpiryAccess  = 15 * time.Minute
	TokenExpiryRefresh = 7 * 24 * time.Hour
)

// TokenPair is one issued session: a short-lived stateless access token and
// a long-lived revocable refresh token.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService issues, verifies, refreshes and revokes session token pairs.
//
// Access tokens are HMAC-signed JWTs verified without any store lookup.
// Refresh tokens are JWTs carrying a unique identifier (jti) registered in
// the revocation registry; a refresh token is live until that identifier is
// revoked or the token expires. Revocation is terminal.
type TokenService struct {
	// SecretKey signs both token types. Required.
	SecretKey string

	// Issuer is stamped into and required from every token.
	Issuer string

	// SigningAlg selects the HMAC variant (HS256 default, HS384, HS512).
	SigningAlg string

	// AccessExpiry defaults to TokenExpiryAccess.
	AccessExpiry time.Duration

	// RefreshExpiry defaults to TokenExpiryRefresh.
	RefreshExpiry time.Duration

	// Sessions is the revocation registry. Required.
	Sessions RevocationStore
}

// Issue creates a new access/refresh pair for a user and records the refresh
// token's identifier as not revoked.
func (s *TokenService) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	now := time.Now()

	access, expiresIn, err := s.signToken(userID, "access", "", now, s.accessExpiry())
	if err != nil {
		return nil, err
	}

	jti := uuid.NewString()
	refresh, _, err := s.signToken(userID, "refresh", jti, now, s.refreshExpiry())
	if err != nil {
		return nil, err
	}

	rec := &SessionRecord{
		ID:        jti,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshExpiry()),
	}
	if err := s.Sessions.RecordSession(ctx, rec); err != nil {
		return nil, unavailable("record session", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

// VerifyAccess validates an access token and returns the user id it was
// issued for. Stateless: no registry lookup. Malformed, tampered and expired
// tokens all return ErrTokenInvalid.
func (s *TokenService) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.parseToken(tokenString, "access")
	if err != nil {
		return "", err
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", ErrTokenInvalid
	}
	return userID, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token's
// identifier is revoked as part of rotation, so a refresh token mints at most
// one successor. Returns ErrTokenInvalid for malformed or expired tokens and
// ErrTokenRevoked for revoked ones.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, jti, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Rotation: the old identifier becomes terminal before a successor exists.
	if err := s.Sessions.RevokeSession(ctx, jti); err != nil {
		return nil, unavailable("revoke session", err)
	}

	return s.Issue(ctx, userID)
}

// Revoke marks a refresh token's identifier revoked. Idempotent: revoking an
// already revoked token succeeds silently.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ErrTokenInvalid
	}
	if err := s.Sessions.RevokeSession(ctx, jti); err != nil {
		return unavailable("revoke session", err)
	}
	return nil
}

// RevokeAllForUser revokes every live refresh token of a user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.Sessions.RevokeUserSessions(ctx, userID); err != nil {
		return unavailable("revoke user sessions", err)
	}
	return nil
}

// ListSessions returns the live sessions of a user.
func (s *TokenService) ListSessions(ctx context.Context, userID string) ([]*SessionRecord, error) {
	recs, err := s.Sessions.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, unavailable("list user sessions", err)
	}
	return recs, nil
}

// verifyRefresh validates a refresh token's signature, expiry and revocation
// state, returning its subject and identifier.
func (s *TokenService) verifyRefresh(ctx context.Context, refreshToken string) (userID, jti string, err error) {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return "", "", err
	}

	userID, _ = claims["sub"].(string)
	jti, _ = claims["jti"].(string)
	if userID == "" || jti == "" {
		return "", "", ErrTokenInvalid
	}

	rec, err := s.Sessions.GetSession(ctx, jti)
	if err != nil {
		if err == ErrNotFound {
			// Signed but never recorded: treat like any other bad token.
			return "", "", ErrTokenInvalid
		}
		return "", "", unavailable("get session", err)
	}
	if rec.Revoked {
		return "", "", ErrTokenRevoked
	}
	if rec.IsExpired() {
		return "", "", ErrTokenInvalid
	}
	return userID, jti, nil
}

// signToken creates a signed JWT of the given type.
func (s *TokenService) signToken(userID, tokenType, jti string, now time.Time, expiry time.Duration) (string, int64, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	if s.Issuer != "" {
		claims["iss"] = s.Issuer
	}
	if jti != "" {
		claims["jti"] = jti
	}

	signingMethod := jwt.SigningMethodHS256
	if s.SigningAlg == "HS384" {
		signingMethod = jwt.SigningMethodHS384
	} else if s.SigningAlg == "HS512" {
		signingMethod = jwt.SigningMethodHS512
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	tokenString, err := token.SignedString([]byte(s.SecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, int64(expiry.Seconds()), nil
}

// parseToken validates a token of the expected type and returns its claims.
// Attacker-controlled input never panics; every parse problem is
// ErrTokenInvalid.
func (s *TokenService) parseToken(tokenString, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != expectedType {
		return nil, ErrTokenInvalid
	}

	if s.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != s.Issuer {
			return nil, ErrTokenInvalid
		}
	}

	return claims, nil
}

func (s *TokenService) accessExpiry() time.Duration {
	if s.AccessExpiry > 0 {
		return s.AccessExpiry
	}
	return TokenExpiryAccess
}

func (s *TokenService) refreshExpiry() time.Duration {
	if s.RefreshExpiry > 0 {
		return s.RefreshExpiry
	}
	return TokenExpiryRefresh
}
