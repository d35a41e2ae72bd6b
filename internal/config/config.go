// Package config defines the top-level configuration for the settlement
// engine and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SETTLER_* environment
// variables.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	PriceFeed  PriceFeedConfig  `toml:"price_feed"`
	Settlement SettlementConfig `toml:"settlement"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. An empty addr disables
// Redis entirely: no price cache and no run lock.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PriceFeedConfig holds the price feed endpoint and lookup parameters.
type PriceFeedConfig struct {
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	Timeout        duration `toml:"timeout"`
	MaxConcurrency int      `toml:"max_concurrency"`
	CacheTTL       duration `toml:"cache_ttl"`
}

// SettlementConfig holds the fee configuration and pass scheduling.
type SettlementConfig struct {
	TokenFeeRate  float64 `toml:"token_fee_rate"`
	PointsFeeRate float64 `toml:"points_fee_rate"`

	// Fee split across the reward pools; the four shares must sum to 1.
	LeaderboardShare float64 `toml:"leaderboard_share"`
	ReferralShare    float64 `toml:"referral_share"`
	WheelShare       float64 `toml:"wheel_share"`
	TreasuryShare    float64 `toml:"treasury_share"`

	// RunInterval is the self-trigger cadence in serve mode.
	RunInterval duration `toml:"run_interval"`

	// LockTTL bounds how long a crashed pass can hold the run lock.
	LockTTL duration `toml:"lock_ttl"`
}

// ArchiveConfig holds S3-compatible object storage parameters for run-report
// archival. Disabled by default.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	TriggerSecret string   `toml:"trigger_secret"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "90s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "settler",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:        "https://min-api.cryptocompare.com",
			Timeout:        duration{10 * time.Second},
			MaxConcurrency: 4,
			CacheTTL:       duration{60 * time.Second},
		},
		Settlement: SettlementConfig{
			TokenFeeRate:     0.10,
			PointsFeeRate:    0.05,
			LeaderboardShare: 0.15,
			ReferralShare:    0.10,
			WheelShare:       0.05,
			TreasuryShare:    0.70,
			RunInterval:      duration{90 * time.Second},
			LockTTL:          duration{2 * time.Minute},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Region:  "us-east-1",
			Prefix:  "settlement-runs",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"once":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Price feed
	if c.PriceFeed.BaseURL == "" {
		errs = append(errs, "price_feed: base_url must not be empty")
	}
	if c.PriceFeed.MaxConcurrency < 1 {
		errs = append(errs, "price_feed: max_concurrency must be >= 1")
	}

	// Settlement
	if c.Settlement.TokenFeeRate < 0 || c.Settlement.TokenFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("settlement: token_fee_rate must be in [0, 1), got %v", c.Settlement.TokenFeeRate))
	}
	if c.Settlement.PointsFeeRate < 0 || c.Settlement.PointsFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("settlement: points_fee_rate must be in [0, 1), got %v", c.Settlement.PointsFeeRate))
	}
	splitSum := c.Settlement.LeaderboardShare + c.Settlement.ReferralShare +
		c.Settlement.WheelShare + c.Settlement.TreasuryShare
	if math.Abs(splitSum-1.0) > 1e-9 {
		errs = append(errs, fmt.Sprintf("settlement: fee split shares must sum to 1.0, got %v", splitSum))
	}
	if c.Settlement.RunInterval.Duration < time.Second {
		errs = append(errs, "settlement: run_interval must be at least 1s")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.Region == "" {
			errs = append(errs, "archive: region must not be empty when enabled")
		}
	}

	// Server. The trigger secret is required in serve mode; an engine
	// reachable over the network without one is a configuration error.
	if strings.ToLower(c.Mode) == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.TriggerSecret == "" {
			errs = append(errs, "server: trigger_secret must be set in serve mode")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
