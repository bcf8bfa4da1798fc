// Package config loads the web client's settings from the environment.
package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// EnvProduction is the WEB_ENV value that enforces explicit secrets.
const EnvProduction = "production"

// KeySize is the byte length of the CSRF and state-sealing keys.
const KeySize = 32

// Config holds every setting of the web process.
type Config struct {
	Addr      string `env:"WEB_ADDR, default=:3000"`
	Env       string `env:"WEB_ENV, default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=json"`
	Timezone  string `env:"WEB_TIMEZONE, default=Local"`

	API   APIConfig
	State StateConfig

	CSRFKeyHex         string        `env:"CSRF_KEY"`
	RateLimitPerSecond float64       `env:"RATE_LIMIT_PER_SECOND, default=10"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST, default=20"`
	SlowRequest        time.Duration `env:"SLOW_REQUEST, default=200ms"`
	ShutdownGrace      time.Duration `env:"SHUTDOWN_GRACE, default=10s"`

	csrfKey  []byte
	stateKey []byte
	location *time.Location
}

// APIConfig locates the remote API.
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL, default=http://localhost:8080/api"`
	Timeout time.Duration `env:"API_TIMEOUT, default=15s"`
}

// StateConfig selects where durable client state lives.
type StateConfig struct {
	Backend     string        `env:"STATE_BACKEND, default=sqlite"`
	DBPath      string        `env:"STATE_DB_PATH, default=testinsure-web.db"`
	RedisAddr   string        `env:"REDIS_ADDR, default=localhost:6379"`
	RedisDB     int           `env:"REDIS_DB, default=0"`
	IdleTTL     time.Duration `env:"STATE_IDLE_TTL, default=720h"`
	KeyHex      string        `env:"STATE_KEY"`
	PingTimeout time.Duration `env:"STATE_PING_TIMEOUT, default=5s"`
}

// CSRFKey returns the decoded CSRF_KEY.
func (c *Config) CSRFKey() []byte { return c.csrfKey }

// StateKey returns the decoded STATE_KEY used to seal tokens at rest.
func (c *Config) StateKey() []byte { return c.stateKey }

// Location returns the time zone slot times are interpreted in.
func (c *Config) Location() *time.Location { return c.location }

// Production reports whether the process runs with production safeguards.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// LoadDotEnv reads .env files into the process environment when present.
// Existing variables win.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("dotenv_skipped", "error", err.Error())
	}
}

// Load reads the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and derives keys and location.
// PRE: none
// POST: CSRFKey() and StateKey() are KeySize bytes; outside production a missing
// key is replaced by a random one
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch cfg.State.Backend {
	case BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, cfg.State.Backend)
	}
	if cfg.API.Timeout <= 0 {
		return nil, errors.New("API_TIMEOUT must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	var err error
	if cfg.csrfKey, err = decodeKey("CSRF_KEY", cfg.CSRFKeyHex, cfg.Production()); err != nil {
		return nil, err
	}
	if cfg.stateKey, err = decodeKey("STATE_KEY", cfg.State.KeyHex, cfg.Production()); err != nil {
		return nil, err
	}
	if cfg.location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("WEB_TIMEZONE: %w", err)
	}
	return &cfg, nil
}

// decodeKey parses a hex key, generating a random one outside production.
func decodeKey(name, keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != KeySize {
			return nil, fmt.Errorf("%s must be %d hex characters (%d bytes)", name, KeySize*2, KeySize)
		}
		return key, nil
	}
	if production {
		return nil, fmt.Errorf("%s is required in production", name)
	}
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	slog.Warn("random_key_generated", "key", name, "hint", "state does not survive a restart; set it for production")
	return key, nil
}
