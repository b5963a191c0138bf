package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	ac "github.com/rkotari/authcore"
	"github.com/rkotari/authcore/stores/fs"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	engine := &ac.Engine{
		Users: fs.NewUserStore(dir),
		Links: fs.NewLinkStore(dir),
		Tokens: &ac.TokenService{
			SecretKey: "httpapi-test-secret",
			Issuer:    "authcore-test",
			Sessions:  fs.NewRevocationStore(dir),
		},
		Hasher:  &ac.PasswordHasher{Cost: bcrypt.MinCost},
		Tickets: &ac.ResetTicketer{SecretKey: "httpapi-test-secret"},
		BaseURL: "http://localhost:8080",
	}

	srv := httptest.NewServer(New(engine).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body map[string]any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestRegisterLoginLogoutRefreshFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/auth/register", map[string]any{
		"email":    "a@x.com",
		"password": "Secret123!",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", resp.StatusCode, body)
	}

	resp, body = postJSON(t, srv.URL+"/auth/login", map[string]any{
		"email":    "A@X.com",
		"password": "Secret123!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	refresh, _ := body["refresh"].(string)
	access, _ := body["access"].(string)
	if refresh == "" || access == "" {
		t.Fatalf("login response missing tokens: %v", body)
	}

	resp, _ = postJSON(t, srv.URL+"/auth/token/refresh", map[string]any{"refresh": refresh}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}

	// The refreshed-out token was rotated away; log out with a live one.
	resp, body = postJSON(t, srv.URL+"/auth/login", map[string]any{
		"email": "a@x.com", "password": "Secret123!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login: expected 200, got %d", resp.StatusCode)
	}
	refresh, _ = body["refresh"].(string)

	resp, _ = postJSON(t, srv.URL+"/auth/logout", map[string]any{"refresh": refresh}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/auth/token/refresh", map[string]any{"refresh": refresh}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/auth/register", map[string]any{"email": "dup@x.com", "password": "Secret123!"}, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed register failed: %d", resp.StatusCode)
	}

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{"duplicate email", "/auth/register", map[string]any{"email": "DUP@x.com", "password": "Secret123!"}, http.StatusConflict},
		{"weak password", "/auth/register", map[string]any{"email": "w@x.com", "password": "short"}, http.StatusBadRequest},
		{"missing email", "/auth/register", map[string]any{"password": "Secret123!"}, http.StatusBadRequest},
		{"bad credentials", "/auth/login", map[string]any{"email": "dup@x.com", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown user login", "/auth/login", map[string]any{"email": "ghost@x.com", "password": "whatever1"}, http.StatusUnauthorized},
		{"malformed refresh", "/auth/token/refresh", map[string]any{"refresh": "garbage"}, http.StatusUnauthorized},
		{"logout without token", "/auth/logout", map[string]any{}, http.StatusBadRequest},
		{"reset always succeeds", "/auth/password-reset", map[string]any{"email": "ghost@x.com"}, http.StatusOK},
		{"reset confirm bad ticket", "/auth/password-reset-confirm/u-1/bad-ticket", map[string]any{"password": "NewSecret1!"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+tt.path, tt.body, nil)
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d (%v)", tt.status, resp.StatusCode, body)
			}
		})
	}
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/auth/register", map[string]any{"email": "real@x.com", "password": "Secret123!"}, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed register failed: %d", resp.StatusCode)
	}

	_, wrongPass := postJSON(t, srv.URL+"/auth/login", map[string]any{"email": "real@x.com", "password": "WrongPass1"}, nil)
	_, noUser := postJSON(t, srv.URL+"/auth/login", map[string]any{"email": "ghost@x.com", "password": "WrongPass1"}, nil)
	if wrongPass["detail"] != noUser["detail"] {
		t.Errorf("login rejections must be uniform: %v vs %v", wrongPass, noUser)
	}
}

func TestProfileRequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := postJSON(t, srv.URL+"/auth/register", map[string]any{"email": "p@x.com", "password": "Secret123!", "first_name": "Pat"}, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed register failed: %d", resp.StatusCode)
	}
	_, login := postJSON(t, srv.URL+"/auth/login", map[string]any{"email": "p@x.com", "password": "Secret123!"}, nil)
	access, _ := login["access"].(string)

	// No token.
	resp, err := http.Get(srv.URL + "/auth/profile")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// With token.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
	var user map[string]any
	json.NewDecoder(resp.Body).Decode(&user)
	if user["email"] != "p@x.com" || user["first_name"] != "Pat" {
		t.Errorf("unexpected profile: %v", user)
	}
}
