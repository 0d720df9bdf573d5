// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/security"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN; required by cmd/migrate and cmd/worker.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSigningKeys is a comma-separated list of kid:secret pairs. The first
	// pair is the active signing key; the rest verify older tokens.
	JWTSigningKeys string `mapstructure:"JWT_SIGNING_KEYS"`
	// JWTIssuer is the iss claim (e.g. "authcore"); set on every issued token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "authcore-api"); checked on verification.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LockoutThreshold is the number of consecutive failed logins that locks
	// an account; default 5.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutDuration is how long a triggered lock lasts (e.g. "30m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// SentinelTTL is how long consumed-token markers live in the reuse
	// sentinel cache (e.g. "5m").
	SentinelTTL string `mapstructure:"REUSE_SENTINEL_TTL"`
	// RedisAddr is the Redis address for the reuse sentinel (e.g.
	// localhost:6379). Empty falls back to the in-process store.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. localhost:4317).
	// Empty disables exporting.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// WorkerSweepInterval is how often cmd/worker purges expired blacklist
	// entries and sweeps expired sessions (e.g. "10m").
	WorkerSweepInterval string `mapstructure:"WORKER_SWEEP_INTERVAL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SIGNING_KEYS", "")
	v.SetDefault("JWT_ISSUER", "authcore")
	v.SetDefault("JWT_AUDIENCE", "authcore-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("LOCKOUT_DURATION", "30m")
	v.SetDefault("REUSE_SENTINEL_TTL", "5m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("WORKER_SWEEP_INTERVAL", "10m")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.LockoutThreshold < 0 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must not be negative")
	}

	if _, err := cfg.SigningKeySpecs(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SigningKeySpecs parses JWTSigningKeys into ordered key specs. Each entry is
// kid:secret; the first entry is the active key. An empty value yields an
// empty ring, which the issuer reports as signing unavailable.
func (c *Config) SigningKeySpecs() ([]security.KeySpec, error) {
	if c == nil || strings.TrimSpace(c.JWTSigningKeys) == "" {
		return nil, nil
	}
	parts := strings.Split(c.JWTSigningKeys, ",")
	specs := make([]security.KeySpec, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, secret, ok := strings.Cut(p, ":")
		if !ok || id == "" || secret == "" {
			return nil, errors.New("config: JWT_SIGNING_KEYS entries must be kid:secret")
		}
		specs = append(specs, security.KeySpec{ID: id, Secret: secret})
	}
	return specs, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// LockDuration parses LockoutDuration as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) LockDuration() time.Duration {
	return durationOr(c.LockoutDuration, 30*time.Minute)
}

// ReuseSentinelTTL parses SentinelTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) ReuseSentinelTTL() time.Duration {
	return durationOr(c.SentinelTTL, 5*time.Minute)
}

// SweepInterval parses WorkerSweepInterval as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.WorkerSweepInterval, 10*time.Minute)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
