package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RegisterRequest carries the inputs of the Register flow. Password may be
// empty, which creates an account with no usable credential (federation-only
// accounts log in through a provider or set a password via reset).
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Role      string `json:"role"`
}

// FederatedSession is the result of a federated login.
type FederatedSession struct {
	Tokens    *TokenPair
	User      *User
	IsNewUser bool
}

// Engine orchestrates the authentication flows over its collaborators. Each
// operation is a finite synchronous computation, safe to run concurrently
// across requests; the only shared state lives behind the stores.
//
// The authenticated identity, where a flow needs one, is always an explicit
// argument. There is no request-scoped ambient user.
type Engine struct {
	Users  UserStore
	Links  LinkStore
	Tokens *TokenService

	// Hasher defaults to a bcrypt hasher at default cost.
	Hasher *PasswordHasher

	// Policy defaults to DefaultPasswordPolicy.
	Policy *PasswordPolicy

	// Tickets issues and verifies password-reset tickets. Required for the
	// reset flows.
	Tickets *ResetTicketer

	// Verifiers maps a provider name ("google") to its claims verifier.
	Verifiers map[string]ClaimsVerifier

	// Email dispatches reset mail. Optional; without it reset requests still
	// succeed but nothing is sent.
	Email EmailSender

	// BaseURL is used to build reset links in outgoing mail.
	BaseURL string

	// VerifyTimeout bounds the provider verification call. Defaults to 10s.
	VerifyTimeout time.Duration

	// EmailTimeout bounds reset-mail dispatch. Defaults to 10s.
	EmailTimeout time.Duration
}

// Register creates a new account. The email is normalized before the
// uniqueness check; a store-level uniqueness violation (including one raced
// in by a concurrent registration) surfaces as ErrDuplicateEmail.
func (e *Engine) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, NewValidationError("email", "email is required")
	}

	var passwordHash string
	if req.Password != "" {
		if err := e.policy().Validate(req.Password); err != nil {
			return nil, ErrWeakPassword
		}
		hash, err := e.hasher().Hash(req.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
	}
	if passwordHash != "" {
		user.PasswordChangedAt = now
	}

	if err := e.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, unavailable("create user", err)
	}
	return user, nil
}

// PasswordLogin verifies an email/password pair and issues a session.
// Unknown email, deactivated account, passwordless account and wrong password
// all return the identical ErrInvalidCredentials; the paths without a real
// credential burn a bcrypt comparison so none of them is observably faster.
func (e *Engine) PasswordLogin(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, NewValidationError("", "email and password are required")
	}

	user, err := e.Users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, unavailable("get user", err)
		}
		e.hasher().burnVerification(password)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || !user.HasPassword() {
		e.hasher().burnVerification(password)
		return nil, ErrInvalidCredentials
	}

	if !e.hasher().Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return e.Tokens.Issue(ctx, user.ID)
}

// FederatedLogin verifies a provider token and resolves it to a local user,
// creating the user and/or the federated link on first contact.
//
// Resolution order: an existing (provider, subject) link wins and gets its
// claims snapshot refreshed; otherwise an existing account with the claimed
// email gets linked; otherwise a fresh passwordless account is created.
func (e *Engine) FederatedLogin(ctx context.Context, provider, providerToken string) (*FederatedSession, error) {
	if providerToken == "" {
		return nil, NewValidationError("token", "provider token is required")
	}
	verifier, ok := e.Verifiers[provider]
	if !ok {
		return nil, NewValidationError("provider", fmt.Sprintf("unknown provider %q", provider))
	}

	vctx, cancel := context.WithTimeout(ctx, e.verifyTimeout())
	defer cancel()
	claims, err := verifier.Verify(vctx, providerToken)
	if err != nil {
		if errors.Is(err, ErrClaimsInvalid) {
			return nil, err
		}
		return nil, unavailable("verify claims", err)
	}
	if claims == nil || claims.Subject == "" {
		return nil, ErrClaimsInvalid
	}
	if claims.Email == "" {
		return nil, ErrMissingEmailClaim
	}

	user, isNew, err := e.resolveFederatedUser(ctx, provider, claims)
	if err != nil {
		return nil, err
	}

	tokens, err := e.Tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &FederatedSession{Tokens: tokens, User: user, IsNewUser: isNew}, nil
}

// resolveFederatedUser maps verified claims to a local user, creating link
// and account as needed. Store uniqueness races (two first logins for the
// same identity, or a registration racing a federated signup) are resolved by
// re-reading the winner rather than failing the request.
func (e *Engine) resolveFederatedUser(ctx context.Context, provider string, claims *Claims) (*User, bool, error) {
	link, err := e.Links.GetLink(ctx, provider, claims.Subject)
	if err == nil {
		if err := e.Links.SaveLinkClaims(ctx, provider, claims.Subject, claims.Snapshot()); err != nil {
			return nil, false, unavailable("save link claims", err)
		}
		user, err := e.Users.GetUserByID(ctx, link.UserID)
		if err != nil {
			return nil, false, unavailable("get linked user", err)
		}
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, unavailable("get link", err)
	}

	email := NormalizeEmail(claims.Email)
	user, isNew, err := e.findOrCreateFederatedUser(ctx, email, claims)
	if err != nil {
		return nil, false, err
	}

	newLink := &FederatedLink{
		Provider:  provider,
		SubjectID: claims.Subject,
		UserID:    user.ID,
		Claims:    claims.Snapshot(),
		CreatedAt: time.Now(),
	}
	if err := e.Links.CreateLink(ctx, newLink); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent first login created the link; use its binding.
			existing, lerr := e.Links.GetLink(ctx, provider, claims.Subject)
			if lerr != nil {
				return nil, false, unavailable("get link after race", lerr)
			}
			winner, uerr := e.Users.GetUserByID(ctx, existing.UserID)
			if uerr != nil {
				return nil, false, unavailable("get linked user", uerr)
			}
			return winner, false, nil
		}
		return nil, false, unavailable("create link", err)
	}
	return user, isNew, nil
}

// findOrCreateFederatedUser looks up the account owning the claimed email or
// creates a passwordless one.
func (e *Engine) findOrCreateFederatedUser(ctx context.Context, email string, claims *Claims) (*User, bool, error) {
	user, err := e.Users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, unavailable("get user by email", err)
	}

	user = &User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		AvatarURL: claims.Picture,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := e.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent registration won the email; link to that account.
			winner, uerr := e.Users.GetUserByEmail(ctx, email)
			if uerr != nil {
				return nil, false, unavailable("get user after race", uerr)
			}
			return winner, false, nil
		}
		return nil, false, unavailable("create user", err)
	}
	slog.Info("created federated user", "user", user.ID, "email", email)
	return user, true, nil
}

// Refresh exchanges a live refresh token for a new pair.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, NewValidationError("refresh", "refresh token is required")
	}
	return e.Tokens.Refresh(ctx, refreshToken)
}

// Logout revokes a refresh token. A missing token is a request-validation
// failure, distinct from a revocation failure on a malformed one.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return NewValidationError("refresh", "refresh token is required")
	}
	return e.Tokens.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every live session of the given authenticated user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return NewValidationError("user", "user id is required")
	}
	return e.Tokens.RevokeAllForUser(ctx, userID)
}

// ListSessions returns the live sessions of the given authenticated user.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]*SessionRecord, error) {
	if userID == "" {
		return nil, NewValidationError("user", "user id is required")
	}
	return e.Tokens.ListSessions(ctx, userID)
}

// RequestPasswordReset issues a reset ticket and mails it to the account
// owning the email, if one exists. The outcome is identical either way:
// neither the response nor its error reveals whether the email is registered.
// Mail dispatch failures are logged, never surfaced.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return NewValidationError("email", "email is required")
	}

	user, err := e.Users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return unavailable("get user", err)
		}
		return nil
	}

	ticket := e.Tickets.Issue(user)
	if e.Email == nil {
		return nil
	}

	resetLink := fmt.Sprintf("%s/auth/password-reset-confirm/%s/%s", e.BaseURL, user.ID, ticket)
	name := user.FirstName
	if name == "" {
		name = user.Email
	}
	body := fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password:\n%s\n\nIf you didn't ask for this, ignore.", name, resetLink)

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.emailTimeout())
	defer cancel()
	if err := e.Email.Send(mctx, user.Email, "Password reset for your account", body); err != nil {
		slog.Warn("failed to send reset email", "user", user.ID, "error", err)
	}
	return nil
}

// ConfirmPasswordReset verifies a reset ticket against the user's current
// password state and, on success, sets the new password. Setting it moves
// PasswordChangedAt, which invalidates this ticket and every earlier one.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, userID, ticket, newPassword string) error {
	if newPassword == "" {
		return NewValidationError("password", "password is required")
	}
	if userID == "" || ticket == "" {
		return NewValidationError("", "user id and ticket are required")
	}

	user, err := e.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return unavailable("get user", err)
	}

	if err := e.Tickets.Verify(user, ticket); err != nil {
		return err
	}

	if err := e.policy().Validate(newPassword); err != nil {
		return ErrWeakPassword
	}
	hash, err := e.hasher().Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.PasswordChangedAt = time.Now()
	if err := e.Users.SaveUser(ctx, user); err != nil {
		return unavailable("save user", err)
	}
	return nil
}

// GetProfile returns the account of the given authenticated user.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, NewValidationError("user", "user id is required")
	}
	user, err := e.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("get user", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd to the user's profile.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, upd *ProfileUpdate) (*User, error) {
	user, err := e.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.Address != nil {
		user.Address = *upd.Address
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}

	if err := e.Users.SaveUser(ctx, user); err != nil {
		return nil, unavailable("save user", err)
	}
	return user, nil
}

func (e *Engine) hasher() *PasswordHasher {
	if e.Hasher != nil {
		return e.Hasher
	}
	return &PasswordHasher{}
}

func (e *Engine) policy() *PasswordPolicy {
	if e.Policy != nil {
		return e.Policy
	}
	return DefaultPasswordPolicy()
}

func (e *Engine) verifyTimeout() time.Duration {
	if e.VerifyTimeout > 0 {
		return e.VerifyTimeout
	}
	return 10 * time.Second
}

func (e *Engine) emailTimeout() time.Duration {
	if e.EmailTimeout > 0 {
		return e.EmailTimeout
	}
	return 10 * time.Second
}
