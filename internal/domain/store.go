package domain

import (
	"context"
	"time"
)

// MarketStore loads the markets a settlement pass operates on.
type MarketStore interface {
	// ListOpenWithBets returns every ACTIVE, unresolved market together with
	// its bets. This is the working set of one settlement pass.
	ListOpenWithBets(ctx context.Context) ([]Market, error)

	GetByID(ctx context.Context, id string) (Market, error)
}

// LedgerStore applies one market's resolution as a single atomic unit.
type LedgerStore interface {
	// ApplySettlement writes the market's resolution fields, every winning
	// bet's payout, and the reward-pool increments in one transaction. The
	// market update is conditional on resolved = false; if another pass got
	// there first, nothing is written and ErrAlreadySettled is returned.
	ApplySettlement(ctx context.Context, s Settlement) error

	// ApplyExpiry parks an ACTIVE market as PAUSED without settling it.
	// Resolved stays false; the market awaits manual resolution.
	ApplyExpiry(ctx context.Context, marketID string, closedAt time.Time) error

	// PoolBalances returns the current balance of every reward pool.
	PoolBalances(ctx context.Context) (map[RewardPool]float64, error)
}

// PriceSource looks up the current USD price of a symbol. Implementations
// return ErrPriceUnavailable when the feed has no quote.
type PriceSource interface {
	Lookup(ctx context.Context, symbol string) (float64, error)
}

// PriceCache is a short-lived snapshot cache in front of the price feed.
// Get returns ErrNotFound for symbols not cached.
type PriceCache interface {
	Get(ctx context.Context, symbol string) (float64, error)
	Set(ctx context.Context, symbol string, price float64) error
}

// LockManager provides a best-effort distributed lock used to suppress
// overlapping settlement passes. The ledger's compare-and-set remains the
// correctness guarantee; the lock only avoids wasted work.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is held by another party.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RunArchiver persists the audit record of a completed pass.
type RunArchiver interface {
	ArchiveRun(ctx context.Context, report RunReport) error
}
