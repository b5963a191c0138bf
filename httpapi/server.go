// Package httpapi exposes the authcore engine over HTTP. Handlers decode
// plain JSON payloads, invoke one engine flow and map its typed error onto a
// status code; no business rules live here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	ac "github.com/rkotari/authcore"
)

type contextKey string

const userIDKey contextKey = "authcore.userID"

// Server wires the engine's flows onto routes.
type Server struct {
	Engine *ac.Engine
	router *mux.Router
}

// New creates a Server with all auth routes mounted under /auth.
func New(engine *ac.Engine) *Server {
	s := &Server{Engine: engine, router: mux.NewRouter()}

	r := s.router.PathPrefix("/auth").Subrouter()
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/token/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/google", s.handleGoogleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/password-reset", s.handlePasswordReset).Methods(http.MethodPost)
	r.HandleFunc("/password-reset-confirm/{uid}/{ticket}", s.handlePasswordResetConfirm).Methods(http.MethodPost)

	r.Handle("/logout-all", s.requireAuth(s.handleLogoutAll)).Methods(http.MethodPost)
	r.Handle("/sessions", s.requireAuth(s.handleListSessions)).Methods(http.MethodGet)
	r.Handle("/profile", s.requireAuth(s.handleGetProfile)).Methods(http.MethodGet)
	r.Handle("/profile", s.requireAuth(s.handleUpdateProfile)).Methods(http.MethodPatch)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requireAuth verifies the Bearer access token and stashes the user id in
// the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, ac.ErrTokenInvalid)
			return
		}
		userID, err := s.Engine.Tokens.VerifyAccess(token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

// requestUserID returns the authenticated user id set by requireAuth.
func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ac.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	user, err := s.Engine.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	pair, err := s.Engine.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	pair, err := s.Engine.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	session, err := s.Engine.FederatedLogin(r.Context(), "google", req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  session.Tokens.AccessToken,
		"refresh": session.Tokens.RefreshToken,
		"user":    session.User,
		"created": session.IsNewUser,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	if err := s.Engine.Logout(r.Context(), req.Refresh); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Logged out"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.LogoutAll(r.Context(), requestUserID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Engine.ListSessions(r.Context(), requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*ac.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	if err := s.Engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"detail": "If that email exists, a reset link has been sent.",
	})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	if err := s.Engine.ConfirmPasswordReset(r.Context(), vars["uid"], vars["ticket"], req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Password updated."})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Engine.GetProfile(r.Context(), requestUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd ac.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, ac.NewValidationError("", "invalid request body"))
		return
	}
	user, err := s.Engine.UpdateProfile(r.Context(), requestUserID(r), &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error to a transport status. Unknown errors are
// 500s with a generic body; the cause is logged, never echoed back.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "Internal error"

	var ve *ac.ValidationError
	switch {
	case errors.As(err, &ve):
		status, detail = http.StatusBadRequest, ve.Message
	case errors.Is(err, ac.ErrDuplicateEmail):
		status, detail = http.StatusConflict, "Email already registered"
	case errors.Is(err, ac.ErrInvalidCredentials):
		status, detail = http.StatusUnauthorized, "Unable to log in with provided credentials."
	case errors.Is(err, ac.ErrTokenInvalid) || errors.Is(err, ac.ErrTokenRevoked):
		status, detail = http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, ac.ErrClaimsInvalid):
		status, detail = http.StatusBadRequest, "Invalid id token"
	case errors.Is(err, ac.ErrMissingEmailClaim):
		status, detail = http.StatusBadRequest, "Provider account does not have an email."
	case errors.Is(err, ac.ErrTicketInvalid):
		status, detail = http.StatusBadRequest, "Invalid or expired token."
	case errors.Is(err, ac.ErrWeakPassword):
		status, detail = http.StatusBadRequest, "Password does not meet the policy"
	case errors.Is(err, ac.ErrUserNotFound):
		status, detail = http.StatusNotFound, "Not found"
	case errors.Is(err, ac.ErrUnavailable):
		status, detail = http.StatusServiceUnavailable, "Service unavailable"
	default:
		slog.Error("unhandled engine error", "error", err)
	}

	writeJSON(w, status, map[string]any{"detail": detail})
}
