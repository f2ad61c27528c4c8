// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Token verifiers.
const (
	AuthFirebase = "firebase"
	AuthJWKS     = "jwks"
)

// DevelopmentProjectID is used when no project is configured locally; the
// Firebase emulators accept any project id with the demo- prefix.
const DevelopmentProjectID = "demo-test-project"

// Config is the process configuration.
type Config struct {
	Port        string `env:"PORT"            envDefault:"8080"`
	Environment string `env:"APP_ENVIRONMENT" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL"       envDefault:"info"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	StoreBackend  string        `env:"STORE_BACKEND"  envDefault:"firestore"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"       envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL"      envDefault:"5m"`

	AuthProvider   string `env:"AUTH_PROVIDER"    envDefault:"firebase"`
	JWKSURL        string `env:"JWKS_URL"`
	JWTIssuer      string `env:"JWT_ISSUER"`
	JWTAudience    string `env:"JWT_AUDIENCE"`
	InternalAPIKey string `env:"INTERNAL_API_KEY"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	OTELEndpoint    string  `env:"OTEL_ENDPOINT"`
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	OpenAPISpecPath string `env:"OPENAPI_SPEC_PATH" envDefault:"api/openapi.json"`
}

// Development reports whether the service runs locally.
func (c Config) Development() bool {
	return c.Environment == "development"
}

// NeedsFirebase reports whether any configured component uses Firebase.
func (c Config) NeedsFirebase() bool {
	return c.StoreBackend == StoreFirestore || c.AuthProvider == AuthFirebase
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	l, _ := applog.ParseLevel(c.LogLevel)
	return l
}

// Load parses the environment and rejects inconsistent combinations.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
	if c.FirebaseProjectID == "" && c.Development() {
		c.FirebaseProjectID = DevelopmentProjectID
	}
}

func (c Config) validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreFirestore, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.AuthProvider {
	case AuthFirebase:
	case AuthJWKS:
		if c.JWKSURL == "" {
			errs = append(errs, errors.New("JWKS_URL is required when AUTH_PROVIDER=jwks"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}

	if c.NeedsFirebase() && c.FirebaseProjectID == "" {
		errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required outside development"))
	}
	if c.StoreBackend == StoreMemory && !c.Development() {
		errs = append(errs, errors.New("STORE_BACKEND=memory is only allowed in development"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
