// Package app provides the top-level application lifecycle for the
// settlement engine. It wires together the stores, caches, price feed,
// metrics, and engine, then runs the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloutcast/settler/internal/config"
	"github.com/cloutcast/settler/internal/server"
	"github.com/cloutcast/settler/internal/server/handler"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and blocks until the context is cancelled (serve mode) or
// the single pass completes (once mode). On return the caller should invoke
// Close to release resources.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting settlement engine",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "serve":
		return a.serveMode(ctx, deps)
	case "once":
		return a.onceMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// serveMode starts the HTTP API and a ticker that self-triggers a settlement
// pass every run_interval. External schedulers can additionally POST to
// /api/settlement/run; overlapping passes are suppressed by the run lock and
// made harmless by the ledger's compare-and-set.
func (a *App) serveMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewServer(
		server.Config{
			Port:          a.cfg.Server.Port,
			CORSOrigins:   a.cfg.Server.CORSOrigins,
			TriggerSecret: a.cfg.Server.TriggerSecret,
		},
		server.Handlers{
			Health:     handler.NewHealthHandler(a.logger),
			Settlement: handler.NewSettlementHandler(deps.Engine, a.logger),
			Pools:      handler.NewPoolHandler(deps.Ledger, a.logger),
		},
		deps.Registry,
		a.logger,
	)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	// Internal scheduler: one pass immediately, then every run_interval.
	g.Go(func() error {
		interval := a.cfg.Settlement.RunInterval.Duration
		a.logger.InfoContext(ctx, "internal scheduler started",
			slog.Duration("interval", interval),
		)

		a.runPass(ctx, deps)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.runPass(ctx, deps)
			}
		}
	})

	return g.Wait()
}

// onceMode runs a single settlement pass and returns. Intended for cron jobs
// and manual invocations.
func (a *App) onceMode(ctx context.Context, deps *Dependencies) error {
	summary, err := deps.Engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("app: settlement pass: %w", err)
	}
	a.logger.InfoContext(ctx, "settlement pass complete",
		slog.String("run_id", summary.RunID),
		slog.Int("checked", summary.Checked),
		slog.Int("closed", summary.Closed),
		slog.Int("expired", summary.Expired),
		slog.Int("failed", summary.Failed),
	)
	return nil
}

// runPass executes one scheduled pass. Pass errors are logged, not fatal:
// the scheduler keeps ticking.
func (a *App) runPass(ctx context.Context, deps *Dependencies) {
	if _, err := deps.Engine.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.ErrorContext(ctx, "scheduled settlement pass failed",
			slog.String("error", err.Error()),
		)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down settlement engine")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
