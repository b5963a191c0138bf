package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// HandleTokenFunc receives the Google ID token obtained by the redirect flow.
// Typical implementations feed it into Engine.FederatedLogin and write the
// resulting session to the response.
type HandleTokenFunc func(idToken string, w http.ResponseWriter, r *http.Request)

// OAuthFlow implements the browser authorization-code flow against Google.
// It exists for clients that cannot obtain an ID token themselves; SPA and
// mobile clients that already hold one call the federated-login endpoint
// directly.
type OAuthFlow struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HandleToken is called with the verified-exchangeable ID token after a
	// successful callback. Required.
	HandleToken HandleTokenFunc

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

// NewOAuthFlow creates the flow. Empty arguments fall back to the
// OAUTH2_GOOGLE_CLIENT_ID, OAUTH2_GOOGLE_CLIENT_SECRET and
// OAUTH2_GOOGLE_CALLBACK_URL environment variables.
func NewOAuthFlow(clientId, clientSecret, callbackUrl string, handleToken HandleTokenFunc) *OAuthFlow {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	out := &OAuthFlow{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		HandleToken:  handleToken,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
	out.mux.HandleFunc("/", out.handleRedirect)
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

// ServeHTTP serves the flow's routes: "/" starts the redirect, "/callback/"
// completes it.
func (f *OAuthFlow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mux.ServeHTTP(w, r)
}

func (f *OAuthFlow) handleRedirect(w http.ResponseWriter, r *http.Request) {
	state := generateStateOauthCookie(w)
	u := f.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, u, http.StatusFound)
}

func (f *OAuthFlow) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		http.Error(w, "missing oauth state", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: "oauthstate", MaxAge: 0})
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	token, err := f.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		log.Println("code exchange failed: ", err)
		http.Error(w, "code exchange failed", http.StatusBadRequest)
		return
	}

	// The OIDC scopes make Google attach the ID token to the exchange
	// response; that token is what the engine verifies.
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		log.Println("exchange response carried no id_token")
		http.Error(w, "missing id token", http.StatusBadRequest)
		return
	}

	f.HandleToken(idToken, w, r)
}

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Println("Error generating rand: ", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{
		Name:    "oauthstate",
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(10 * time.Minute),
	}
	http.SetCookie(w, &cookie)
	return state
}
