package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SETTLER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SETTLER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SETTLER_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "SETTLER_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SETTLER_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SETTLER_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SETTLER_DATABASE_NAME")
	setStr(&cfg.Database.User, "SETTLER_DATABASE_USER")
	setStr(&cfg.Database.Password, "SETTLER_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SETTLER_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SETTLER_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SETTLER_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SETTLER_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SETTLER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SETTLER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SETTLER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SETTLER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SETTLER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SETTLER_REDIS_TLS_ENABLED")

	// ── Price feed ──
	setStr(&cfg.PriceFeed.BaseURL, "SETTLER_PRICE_FEED_BASE_URL")
	setStr(&cfg.PriceFeed.APIKey, "SETTLER_PRICE_FEED_API_KEY")
	setDuration(&cfg.PriceFeed.Timeout, "SETTLER_PRICE_FEED_TIMEOUT")
	setInt(&cfg.PriceFeed.MaxConcurrency, "SETTLER_PRICE_FEED_MAX_CONCURRENCY")
	setDuration(&cfg.PriceFeed.CacheTTL, "SETTLER_PRICE_FEED_CACHE_TTL")

	// ── Settlement ──
	setFloat64(&cfg.Settlement.TokenFeeRate, "SETTLER_SETTLEMENT_TOKEN_FEE_RATE")
	setFloat64(&cfg.Settlement.PointsFeeRate, "SETTLER_SETTLEMENT_POINTS_FEE_RATE")
	setFloat64(&cfg.Settlement.LeaderboardShare, "SETTLER_SETTLEMENT_LEADERBOARD_SHARE")
	setFloat64(&cfg.Settlement.ReferralShare, "SETTLER_SETTLEMENT_REFERRAL_SHARE")
	setFloat64(&cfg.Settlement.WheelShare, "SETTLER_SETTLEMENT_WHEEL_SHARE")
	setFloat64(&cfg.Settlement.TreasuryShare, "SETTLER_SETTLEMENT_TREASURY_SHARE")
	setDuration(&cfg.Settlement.RunInterval, "SETTLER_SETTLEMENT_RUN_INTERVAL")
	setDuration(&cfg.Settlement.LockTTL, "SETTLER_SETTLEMENT_LOCK_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SETTLER_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "SETTLER_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "SETTLER_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "SETTLER_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "SETTLER_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "SETTLER_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "SETTLER_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "SETTLER_ARCHIVE_FORCE_PATH_STYLE")
	setStr(&cfg.Archive.Prefix, "SETTLER_ARCHIVE_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "SETTLER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SETTLER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.TriggerSecret, "SETTLER_SERVER_TRIGGER_SECRET")
	setStr(&cfg.Server.TriggerSecret, "SETTLER_TRIGGER_SECRET") // compatibility alias

	// ── Top-level ──
	setStr(&cfg.Mode, "SETTLER_MODE")
	setStr(&cfg.LogLevel, "SETTLER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
