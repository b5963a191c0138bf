// Package authcore implements an authentication and session-token lifecycle
// engine: local accounts with bcrypt credentials, federated (OAuth) identity
// linking, JWT access/refresh session pairs with a revocation registry, and
// stateless self-invalidating password-reset tickets.
//
// # Architecture
//
// User: a local account keyed by a case-insensitively unique email. An
// account without a password hash is federation-only and can never pass
// password login.
//
// FederatedLink: a durable binding from one identity provider subject to one
// local user, carrying a snapshot of the last verified provider claims.
//
// TokenService: issues access/refresh JWT pairs. Access tokens verify
// statelessly; refresh tokens carry an identifier registered in a
// RevocationStore, and revocation is terminal.
//
// ResetTicketer: issues HMAC tickets bound to the user's current password
// state. Changing the password invalidates every earlier ticket without a
// revocation list.
//
// # Basic Usage
//
// Set up stores and wire the engine:
//
//	import (
//	    "github.com/rkotari/authcore"
//	    "github.com/rkotari/authcore/stores/fs"
//	)
//
//	storagePath := "/path/to/storage"
//	users := fs.NewUserStore(storagePath)
//	links := fs.NewLinkStore(storagePath)
//	sessions := fs.NewRevocationStore(storagePath)
//
//	engine := &authcore.Engine{
//	    Users: users,
//	    Links: links,
//	    Tokens: &authcore.TokenService{
//	        SecretKey: secret,
//	        Issuer:    "myapp",
//	        Sessions:  sessions,
//	    },
//	    Tickets:   &authcore.ResetTicketer{SecretKey: secret},
//	    Verifiers: map[string]authcore.ClaimsVerifier{"google": googleVerifier},
//	    Email:     &authcore.ConsoleEmailSender{},
//	    BaseURL:   "https://yourapp.com",
//	}
//
// Every flow returns either its success value or one typed error
// (ErrInvalidCredentials, ErrTokenRevoked, ...); transports map those to
// status codes. See the httpapi and grpcauth packages for ready-made
// surfaces.
package authcore
