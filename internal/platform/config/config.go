package config

import (
	"os"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// value has a development default so the binary runs with no environment at all.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	SessionTTL    time.Duration

	// Lookup gateway. An empty BaseURL selects the deterministic mock client.
	LookupBaseURL string
	LookupTimeout time.Duration

	// Optional backends. Empty values select the in-memory implementations.
	RedisURL    string
	PostgresDSN string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("ADRESBOEK_ADDR", ":8080"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:    durationOr("SESSION_TTL", 30*time.Minute),
		LookupBaseURL: os.Getenv("LOOKUP_BASE_URL"),
		LookupTimeout: durationOr("LOOKUP_TIMEOUT", 10*time.Second),
		RedisURL:      os.Getenv("REDIS_URL"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
