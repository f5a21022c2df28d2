package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the accounting backend.
type Server struct {
	Addr             string
	DatabaseURL      string
	JWTSigningKey    string
	TokenTTL         time.Duration
	CaptchaTTL       time.Duration
	CleanupInterval  time.Duration
	AttemptRetention time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             ":8080",
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSigningKey:    os.Getenv("JWT_SIGNING_KEY"),
		TokenTTL:         24 * time.Hour,
		CaptchaTTL:       5 * time.Minute,
		CleanupInterval:  10 * time.Minute,
		AttemptRetention: 7 * 24 * time.Hour,
	}

	if addr := os.Getenv("FAMLEDGER_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if cfg.JWTSigningKey == "" {
		// Development fallback - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	cfg.TokenTTL = durationFromEnv("TOKEN_TTL", cfg.TokenTTL)
	cfg.CaptchaTTL = durationFromEnv("CAPTCHA_TTL", cfg.CaptchaTTL)
	cfg.CleanupInterval = durationFromEnv("CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.AttemptRetention = durationFromEnv("ATTEMPT_RETENTION", cfg.AttemptRetention)

	return cfg
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
