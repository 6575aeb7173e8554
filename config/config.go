// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const defaultJWTSecret = "default-dev-secret-change-me"

// Role sources for authorization decisions
const (
	RoleSourceStorage = "storage"
	RoleSourceToken   = "token"
)

// Config holds everything the server needs at construction time
type Config struct {
	Env             string
	Port            string
	DatabaseURL     string
	LogLevel        string
	ShutdownTimeout time.Duration

	JWTSecret    string
	JWTAlgorithm string
	TokenTTL     time.Duration
	BcryptCost   int
	RoleSource   string

	AllowedOrigins []string

	NATSURL      string
	NATSEmbedded bool
	NATSPort     int
}

// IsProduction reports whether ENV=production
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// LiveFeedEnabled reports whether rating events go through NATS
func (c Config) LiveFeedEnabled() bool {
	return c.NATSEmbedded || c.NATSURL != ""
}

// Load reads an optional .env file and then the environment
func Load() (Config, error) {
	// Missing .env is fine, the environment may already be populated
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() (Config, error) {
	cfg := Config{
		Env:          getEnv("ENV", "development"),
		Port:         getEnv("PORT", "3001"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAlgorithm: strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		RoleSource:   strings.ToLower(getEnv("AUTH_ROLE_SOURCE", RoleSourceStorage)),
		NATSURL:      os.Getenv("NATS_URL"),
	}

	ttl, err := getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	if err != nil {
		return Config{}, err
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", ttl)
	}
	cfg.TokenTTL = time.Duration(ttl) * time.Minute

	if cfg.BcryptCost, err = getInt("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	shutdown, err := getInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout = time.Duration(shutdown) * time.Second

	if cfg.NATSEmbedded, err = getBool("NATS_EMBEDDED", false); err != nil {
		return Config{}, err
	}
	if cfg.NATSPort, err = getInt("NATS_PORT", 4233); err != nil {
		return Config{}, err
	}

	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8000"))

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = defaultJWTSecret
	}

	switch cfg.RoleSource {
	case RoleSourceStorage, RoleSourceToken:
	default:
		return Config{}, fmt.Errorf("AUTH_ROLE_SOURCE must be %q or %q, got %q", RoleSourceStorage, RoleSourceToken, cfg.RoleSource)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
