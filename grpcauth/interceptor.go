package grpcauth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AccessVerifier verifies an access token and returns the user id it was
// issued for. *authcore.TokenService satisfies this.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (string, error)
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that verifies the
// bearer access token in request metadata and places the user id on the
// handler context.
func UnaryAuthInterceptor(verifier AccessVerifier, config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = normalize(config)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID := authenticate(ctx, verifier, config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return nil, status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		if userID != "" {
			ctx = ContextWithUserID(ctx, userID)
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of
// UnaryAuthInterceptor.
func StreamAuthInterceptor(verifier AccessVerifier, config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = normalize(config)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		userID := authenticate(ctx, verifier, config)

		if config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			if userID == "" {
				return status.Error(codes.Unauthenticated, "authentication required")
			}
		}

		if userID != "" {
			ss = &wrappedStream{ServerStream: ss, ctx: ContextWithUserID(ctx, userID)}
		}
		return handler(srv, ss)
	}
}

// authenticate extracts and verifies the bearer token; "" means the request
// carries no verifiable identity.
func authenticate(ctx context.Context, verifier AccessVerifier, config *InterceptorConfig) string {
	token := bearerFromContext(ctx, config.Config)
	if token == "" {
		return ""
	}
	userID, err := verifier.VerifyAccess(token)
	if err != nil {
		return ""
	}
	return userID
}

func normalize(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	if config.PublicMethods == nil {
		config.PublicMethods = make(map[string]bool)
	}
	return config
}

// wrappedStream overrides the stream context with the authenticated one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
