// Package engine implements the automated settlement engine: the per-market
// resolution state machine, the pure payout calculator, and the orchestrator
// that runs one settlement pass over all open markets.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloutcast/settler/internal/domain"
	"github.com/cloutcast/settler/internal/title"
)

// runLockKey is the distributed-lock key guarding a settlement pass.
const runLockKey = "settlement:run"

// PriceFetcher resolves a set of symbols to current USD prices. Symbols the
// feed cannot quote are simply absent from the returned map.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbols []string) map[string]float64
}

// RunObserver receives the summary of every completed pass.
type RunObserver interface {
	ObserveRun(s domain.RunSummary)
}

// Engine runs settlement passes. It is safe to invoke Run repeatedly and
// concurrently: the ledger's compare-and-set makes double settlement a no-op,
// and the optional lock manager suppresses overlapping passes entirely.
type Engine struct {
	markets  domain.MarketStore
	ledger   domain.LedgerStore
	prices   PriceFetcher
	locks    domain.LockManager  // optional
	archiver domain.RunArchiver  // optional
	observer RunObserver         // optional
	rates    Rates
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Options carries the optional collaborators of an Engine.
type Options struct {
	Locks    domain.LockManager
	Archiver domain.RunArchiver
	Observer RunObserver
	LockTTL  time.Duration
}

// New creates an Engine over the given stores and price fetcher.
func New(markets domain.MarketStore, ledger domain.LedgerStore, prices PriceFetcher, rates Rates, opts Options, logger *slog.Logger) *Engine {
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Engine{
		markets:  markets,
		ledger:   ledger,
		prices:   prices,
		locks:    opts.Locks,
		archiver: opts.Archiver,
		observer: opts.Observer,
		rates:    rates,
		lockTTL:  lockTTL,
		logger:   logger.With(slog.String("component", "engine")),
		now:      time.Now,
	}
}

// Run executes one settlement pass: load open markets, classify, fetch
// prices, then decide/calculate/write per market. Per-market failures are
// logged and counted; only a failure to load the market set is returned as an
// error. Markets are written sequentially so one pass never interleaves
// ledger transactions.
func (e *Engine) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: e.now().UTC(),
	}

	if e.locks != nil {
		unlock, err := e.locks.Acquire(ctx, runLockKey, e.lockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			e.logger.InfoContext(ctx, "settlement pass already in flight, skipping",
				slog.String("run_id", summary.RunID),
			)
			summary.FinishedAt = e.now().UTC()
			return summary, nil
		}
		if err != nil {
			// The lock is an optimisation; a broken lock backend must not
			// stop settlement.
			e.logger.WarnContext(ctx, "run lock unavailable, continuing without it",
				slog.String("error", err.Error()),
			)
		} else {
			defer unlock()
		}
	}

	markets, err := e.markets.ListOpenWithBets(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("engine: load open markets: %w", err)
	}
	summary.Checked = len(markets)

	classifications := make([]title.Classification, len(markets))
	symbolSet := make(map[string]struct{})
	for i, m := range markets {
		classifications[i] = title.Classify(m)
		c := classifications[i]
		if c.Kind == title.KindPriceTriggered && c.Parsed {
			symbolSet[c.Symbol] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	prices := e.prices.Fetch(ctx, symbols)
	summary.PriceMapSize = len(prices)

	now := e.now().UTC()
	outcomes := make([]domain.MarketOutcome, 0, len(markets))

	for i, m := range markets {
		action := Decide(m, classifications[i], prices, now)
		outcome := domain.MarketOutcome{
			MarketID: m.ID,
			Title:    m.Title,
			Action:   action.String(),
		}

		switch action {
		case ActionSettle:
			st := Settle(m, e.rates, now)
			err := e.ledger.ApplySettlement(ctx, st)
			switch {
			case errors.Is(err, domain.ErrAlreadySettled):
				// Another pass won the compare-and-set. Nothing was written.
				e.logger.InfoContext(ctx, "market settled by concurrent pass",
					slog.String("market_id", m.ID),
				)
				outcome.Action = "already_settled"
			case err != nil:
				summary.Failed++
				outcome.Error = err.Error()
				e.logger.ErrorContext(ctx, "settlement write failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			default:
				summary.Closed++
				outcome.WinningOutcome = st.WinningOutcome
				e.logger.InfoContext(ctx, "market settled",
					slog.String("market_id", m.ID),
					slog.String("winning_outcome", st.WinningOutcome),
					slog.Float64("token_fee", st.TokenFee),
					slog.Int("payouts", len(st.Payouts)),
				)
			}

		case ActionExpire:
			if err := e.ledger.ApplyExpiry(ctx, m.ID, now); err != nil {
				summary.Failed++
				outcome.Error = err.Error()
				e.logger.ErrorContext(ctx, "expiry write failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
			} else {
				summary.Expired++
				e.logger.InfoContext(ctx, "market expired without settlement",
					slog.String("market_id", m.ID),
				)
			}

		case ActionSkipNoMatch:
			summary.SkippedNoMatch++
			e.logger.WarnContext(ctx, "price market has no extractable trigger",
				slog.String("market_id", m.ID),
				slog.String("title", m.Title),
			)

		case ActionSkipNoPrice:
			summary.SkippedNoPrice++

		case ActionSkipUnsupported:
			summary.SkippedUnsupported++
		}

		outcomes = append(outcomes, outcome)
	}

	summary.FinishedAt = e.now().UTC()

	e.logger.InfoContext(ctx, "settlement pass finished",
		slog.String("run_id", summary.RunID),
		slog.Int("checked", summary.Checked),
		slog.Int("closed", summary.Closed),
		slog.Int("expired", summary.Expired),
		slog.Int("skipped_no_match", summary.SkippedNoMatch),
		slog.Int("skipped_no_price", summary.SkippedNoPrice),
		slog.Int("skipped_unsupported", summary.SkippedUnsupported),
		slog.Int("failed", summary.Failed),
		slog.Int("price_map_size", summary.PriceMapSize),
		slog.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if e.observer != nil {
		e.observer.ObserveRun(summary)
	}

	if e.archiver != nil {
		report := domain.RunReport{Summary: summary, Outcomes: outcomes}
		if err := e.archiver.ArchiveRun(ctx, report); err != nil {
			e.logger.WarnContext(ctx, "run report archival failed",
				slog.String("run_id", summary.RunID),
				slog.String("error", err.Error()),
			)
		}
	}

	return summary, nil
}
