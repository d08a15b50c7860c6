package session

import (
	"os"
	"time"
)

// Config carries the shared secret behind tokens and cookies.
type Config struct {
	Secret        []byte
	TokenTTL      time.Duration
	SecureCookies bool
}

// ConfigFromEnv reads SESSION_SECRET (JWT_SECRET as a fallback). The
// default is only for local development.
func ConfigFromEnv() Config {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "insecure-dev-secret"
	}
	return Config{
		Secret:        []byte(secret),
		TokenTTL:      14 * 24 * time.Hour,
		SecureCookies: os.Getenv("SESSION_SECURE") == "1",
	}
}
