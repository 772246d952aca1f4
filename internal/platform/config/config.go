package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration. Values come from the environment (optionally seeded
// from a .env file); every key has a default suitable for local development.
type Config struct {
	Port string

	StorageBackend string
	DatabaseURL    string

	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration

	MediaProbeTimeout time.Duration
	BlobDir           string

	UpstreamURL     string
	UpstreamTimeout time.Duration

	Auth AuthConfig

	LogLevel string
	LogFile  string
}

// AuthConfig selects how a caller's guide id is established.
type AuthConfig struct {
	Mode       string
	DevSubject string
	JWTSecret  string
	Issuer     string
	ClockSkew  time.Duration
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	AuthModeDev  = "dev"
	AuthModeHMAC = "hmac"
)

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("SESSION_BACKEND", BackendMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("MEDIA_PROBE_TIMEOUT", "10s")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("AUTH_MODE", AuthModeDev)
	v.SetDefault("DEV_SUBJECT", "")
	v.SetDefault("JWT_CLOCK_SKEW", "30s")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads an optional .env from envFile (ignored when missing) and then the environment.
// Pass "" to skip the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:           strings.TrimSpace(v.GetString("PORT")),
		StorageBackend: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		SessionBackend: strings.ToLower(strings.TrimSpace(v.GetString("SESSION_BACKEND"))),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		BlobDir:        v.GetString("BLOB_DIR"),
		UpstreamURL:    strings.TrimSpace(v.GetString("UPSTREAM_URL")),
		Auth: AuthConfig{
			Mode:       strings.ToLower(strings.TrimSpace(v.GetString("AUTH_MODE"))),
			DevSubject: strings.TrimSpace(v.GetString("DEV_SUBJECT")),
			JWTSecret:  v.GetString("JWT_SECRET"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		LogLevel: strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFile:  strings.TrimSpace(v.GetString("LOG_FILE")),
	}

	var err error
	if cfg.SessionTTL, err = duration(v, "SESSION_TTL", "24h"); err != nil {
		return Config{}, err
	}
	if cfg.MediaProbeTimeout, err = duration(v, "MEDIA_PROBE_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = duration(v, "UPSTREAM_TIMEOUT", "30s"); err != nil {
		return Config{}, err
	}
	if cfg.Auth.ClockSkew, err = duration(v, "JWT_CLOCK_SKEW", "30s"); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func duration(v *viper.Viper, key, example string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. %s): %w", key, example, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("missing required env var: DATABASE_URL (STORAGE_BACKEND=postgres)")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StorageBackend)
	}
	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("missing required env var: REDIS_ADDR (SESSION_BACKEND=redis)")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend)
	}
	switch c.Auth.Mode {
	case AuthModeDev:
	case AuthModeHMAC:
		if c.Auth.JWTSecret == "" {
			return errors.New("missing required env var: JWT_SECRET (AUTH_MODE=hmac)")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDev, AuthModeHMAC, c.Auth.Mode)
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	return nil
}
