package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	s3blob "github.com/cloutcast/settler/internal/blob/s3"
	"github.com/cloutcast/settler/internal/cache/redis"
	"github.com/cloutcast/settler/internal/config"
	"github.com/cloutcast/settler/internal/domain"
	"github.com/cloutcast/settler/internal/engine"
	"github.com/cloutcast/settler/internal/metrics"
	"github.com/cloutcast/settler/internal/price"
	"github.com/cloutcast/settler/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application needs to run
// settlement passes. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	MarketStore domain.MarketStore
	Ledger      domain.LedgerStore

	// Optional Redis-backed collaborators; nil when redis.addr is empty.
	PriceCache domain.PriceCache
	Locks      domain.LockManager

	// Optional run-report archival; nil unless archive.enabled.
	Archiver domain.RunArchiver

	// Engine and observability
	Engine   *engine.Engine
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.Ledger = postgres.NewLedgerStore(pool)

	// --- Redis (optional: empty addr disables price cache and run lock) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.PriceFeed.CacheTTL.Duration)
		deps.Locks = redis.NewLockManager(redisClient)
	} else {
		logger.InfoContext(ctx, "wire: redis.addr empty, running without price cache and run lock")
	}

	// --- S3 run-report archival (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3Client, cfg.Archive.Prefix)
	}

	// --- Price feed ---
	feedClient := price.NewClient(price.Config{
		BaseURL: cfg.PriceFeed.BaseURL,
		APIKey:  cfg.PriceFeed.APIKey,
		Timeout: cfg.PriceFeed.Timeout.Duration,
	}, logger)
	batcher := price.NewBatcher(feedClient, deps.PriceCache, cfg.PriceFeed.MaxConcurrency, logger)

	// --- Metrics ---
	deps.Registry = prometheus.NewRegistry()
	deps.Metrics = metrics.New(deps.Registry)

	// --- Engine ---
	rates := engine.Rates{
		TokenFeeRate:  cfg.Settlement.TokenFeeRate,
		PointsFeeRate: cfg.Settlement.PointsFeeRate,
		Split: domain.FeeSplit{
			Leaderboard: cfg.Settlement.LeaderboardShare,
			Referral:    cfg.Settlement.ReferralShare,
			Wheel:       cfg.Settlement.WheelShare,
			Treasury:    cfg.Settlement.TreasuryShare,
		},
	}
	deps.Engine = engine.New(deps.MarketStore, deps.Ledger, batcher, rates, engine.Options{
		Locks:    deps.Locks,
		Archiver: deps.Archiver,
		Observer: deps.Metrics,
		LockTTL:  cfg.Settlement.LockTTL.Duration,
	}, logger)

	return deps, cleanup, nil
}
