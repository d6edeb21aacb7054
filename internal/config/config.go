// Package config holds the settings shared by every tradertime command.
// Values come from flags, then TRADERTIME_* environment variables, then
// defaults, as parsed by kong.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/dedup"
	"github.com/julianstephens/tradertime/internal/delivery"
	"github.com/julianstephens/tradertime/internal/keyring"
)

// KeyringStore selects the connection string saved in the OS keyring.
const KeyringStore = "keyring"

var (
	ErrRedisAddrMissing  = errors.New("redis center requires --redis-addr")
	ErrInvalidInterval   = errors.New("tick interval must be positive")
	ErrInvalidTolerance  = errors.New("past-trigger tolerance cannot be negative")
	ErrInvalidRedisDB    = errors.New("redis db must be between 0 and 15")
	ErrEmptyStore        = errors.New("--config cannot be empty")
	ErrNegativeRing      = errors.New("ring timeout cannot be negative")
	ErrUnknownCenter     = errors.New("unknown notification center (expected memory or redis)")
	ErrUnknownDedupMode  = errors.New("unknown dedup mode (expected per-alert or single)")
	ErrKeyringConnection = errors.New("no connection string stored in the keyring")
)

type Config struct {
	Store        string        `name:"config" help:"SQLite path, PostgreSQL connection string without password, or \"keyring\"." default:"${config_path}" env:"TRADERTIME_CONFIG"`
	Debug        bool          `help:"Enable debug logging." env:"TRADERTIME_DEBUG"`
	Platform     string        `help:"Delivery platform profile (standard, coarse, exact)." default:"standard" enum:"standard,coarse,exact" env:"TRADERTIME_PLATFORM"`
	TickInterval time.Duration `help:"Foreground scheduler tick interval." default:"10s" env:"TRADERTIME_TICK_INTERVAL"`
	Tolerance    time.Duration `help:"How far in the past a trigger may be and still be scheduled." default:"3s" env:"TRADERTIME_TOLERANCE"`
	Dedup        string        `help:"Trigger dedup mode (per-alert, single)." default:"per-alert" enum:"per-alert,single" env:"TRADERTIME_DEDUP"`
	RingTimeout  time.Duration `help:"Stop a ringing alarm after this long. Zero rings until stopped." default:"0s" env:"TRADERTIME_RING_TIMEOUT"`

	Center        string `help:"Pending notification store (memory, redis)." default:"memory" enum:"memory,redis" env:"TRADERTIME_CENTER"`
	RedisAddr     string `help:"Redis address for the redis center." env:"TRADERTIME_REDIS_ADDR"`
	RedisDB       int    `help:"Redis logical database." default:"0" env:"TRADERTIME_REDIS_DB"`
	RedisPassword string `help:"Redis password. Falls back to the OS keyring." env:"TRADERTIME_REDIS_PASSWORD"`

	APIAddr string `name:"api-addr" help:"Control API listen address. Empty disables it." default:"${api_addr}" env:"TRADERTIME_API_ADDR"`
}

// Vars are the kong interpolation values used by Config's defaults.
func Vars() map[string]string {
	return map[string]string{
		"config_path": constants.DefaultConfigPath,
		"api_addr":    constants.DefaultAPIAddr,
	}
}

// Validate rejects settings that cannot work together. kong calls it after
// parsing.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store) == "" {
		return ErrEmptyStore
	}
	if _, err := delivery.PlatformByName(c.Platform); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.Tolerance < 0 {
		return ErrInvalidTolerance
	}
	if c.RingTimeout < 0 {
		return ErrNegativeRing
	}
	switch c.Dedup {
	case "per-alert", "single":
	default:
		return ErrUnknownDedupMode
	}
	switch c.Center {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return ErrRedisAddrMissing
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return ErrInvalidRedisDB
		}
	default:
		return ErrUnknownCenter
	}
	return nil
}

// DeliveryPlatform returns the selected platform profile.
func (c *Config) DeliveryPlatform() delivery.Platform {
	p, err := delivery.PlatformByName(c.Platform)
	if err != nil {
		return delivery.PlatformStandard
	}
	return p
}

// DedupMode returns the selected dedup mode.
func (c *Config) DedupMode() dedup.Mode {
	return dedup.ParseMode(c.Dedup)
}

// IsPostgres reports whether the store setting selects PostgreSQL.
func (c *Config) IsPostgres() bool {
	return c.Store == KeyringStore || IsPostgresURL(c.Store)
}

// IsPostgresURL reports whether s looks like a PostgreSQL URL.
func IsPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// ConnectionString returns the PostgreSQL connection string, reading the
// keyring when the store setting asks for it.
func (c *Config) ConnectionString() (string, error) {
	if c.Store != KeyringStore {
		return c.Store, nil
	}
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrKeyringConnection
		}
		return "", err
	}
	return connStr, nil
}

// SQLitePath returns the database path with a leading ~ expanded.
func (c *Config) SQLitePath() (string, error) {
	return ExpandHome(c.Store)
}

// Dir returns the directory for logs and other local state. PostgreSQL
// setups use the default config directory.
func (c *Config) Dir() (string, error) {
	if c.IsPostgres() {
		p, err := ExpandHome(constants.DefaultConfigPath)
		if err != nil {
			return "", err
		}
		return filepath.Dir(p), nil
	}
	p, err := c.SQLitePath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// RedisOptions builds client options for the redis center. A missing
// password falls back to the keyring entry.
func (c *Config) RedisOptions() *redis.Options {
	password := c.RedisPassword
	if password == "" {
		if v, err := keyring.Get(keyring.SecretRedis); err == nil {
			password = v
		}
	}
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: password,
		DB:       c.RedisDB,
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
