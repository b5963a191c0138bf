// Command authserver runs the authcore HTTP service: registration, password
// and Google login, token refresh, logout and password recovery.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	ac "github.com/rkotari/authcore"
	"github.com/rkotari/authcore/google"
	"github.com/rkotari/authcore/httpapi"
	fsstore "github.com/rkotari/authcore/stores/fs"
	gormstore "github.com/rkotari/authcore/stores/gorm"
)

type config struct {
	Addr        string `env:"AUTHSERVER_ADDR" envDefault:":8080"`
	BaseURL     string `env:"AUTHSERVER_BASE_URL" envDefault:"http://localhost:8080"`
	SecretKey   string `env:"AUTHSERVER_SECRET_KEY,required"`
	Issuer      string `env:"AUTHSERVER_ISSUER" envDefault:"authserver"`
	DatabaseURL string `env:"AUTHSERVER_DATABASE_URL"`
	StoragePath string `env:"AUTHSERVER_STORAGE_PATH" envDefault:"./data"`

	AccessExpiry  time.Duration `env:"AUTHSERVER_ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"AUTHSERVER_REFRESH_EXPIRY" envDefault:"168h"`
	ResetTTL      time.Duration `env:"AUTHSERVER_RESET_TTL" envDefault:"1h"`

	GoogleClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	var (
		users    ac.UserStore
		links    ac.LinkStore
		sessions ac.RevocationStore
	)
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		users = gormstore.NewUserStore(db)
		links = gormstore.NewLinkStore(db)
		sessions = gormstore.NewRevocationStore(db)
		slog.Info("using database storage")
	} else {
		users = fsstore.NewUserStore(cfg.StoragePath)
		links = fsstore.NewLinkStore(cfg.StoragePath)
		sessions = fsstore.NewRevocationStore(cfg.StoragePath)
		slog.Info("using file storage", "path", cfg.StoragePath)
	}

	verifiers := map[string]ac.ClaimsVerifier{}
	if cfg.GoogleClientID != "" {
		verifiers[google.Provider] = google.NewVerifier(cfg.GoogleClientID)
	}

	engine := &ac.Engine{
		Users: users,
		Links: links,
		Tokens: &ac.TokenService{
			SecretKey:     cfg.SecretKey,
			Issuer:        cfg.Issuer,
			AccessExpiry:  cfg.AccessExpiry,
			RefreshExpiry: cfg.RefreshExpiry,
			Sessions:      sessions,
		},
		Tickets:   &ac.ResetTicketer{SecretKey: cfg.SecretKey, TTL: cfg.ResetTTL},
		Verifiers: verifiers,
		Email:     &ac.ConsoleEmailSender{},
		BaseURL:   cfg.BaseURL,
	}

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.New(engine).Handler())

	// Browser clients without their own Google integration can use the
	// redirect flow; its callback funnels into the same federated login.
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		flow := google.NewOAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
			func(idToken string, w http.ResponseWriter, r *http.Request) {
				session, err := engine.FederatedLogin(r.Context(), google.Provider, idToken)
				if err != nil {
					slog.Warn("google login failed", "error", err)
					http.Error(w, "login failed", http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access":"` + session.Tokens.AccessToken + `","refresh":"` + session.Tokens.RefreshToken + `"}`))
			})
		mux.Handle("/oauth/google/", http.StripPrefix("/oauth/google", flow))
	}

	slog.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
