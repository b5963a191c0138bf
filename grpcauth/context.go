// Package grpcauth authenticates gRPC requests with authcore access tokens:
// a bearer token in the request metadata is verified by the token service and
// the resulting user id is made available on the handler context.
package grpcauth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// DefaultMetadataKeyAuthorization is the default metadata key carrying the
// bearer access token.
const DefaultMetadataKeyAuthorization = "authorization"

type contextKey string

const userIDKey contextKey = "grpcauth.userID"

// Config holds the metadata configuration for the interceptors.
type Config struct {
	// MetadataKeyAuthorization is the metadata key carrying "Bearer <token>".
	// Defaults to "authorization".
	MetadataKeyAuthorization string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeyAuthorization: DefaultMetadataKeyAuthorization}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

// UserIDFromContext returns the authenticated user id placed on the context
// by the interceptors, or "" for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// ContextWithUserID returns a context carrying the authenticated user id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerFromContext extracts the bearer token from incoming metadata.
func bearerFromContext(ctx context.Context, config *Config) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok {
		return ""
	}
	return token
}
