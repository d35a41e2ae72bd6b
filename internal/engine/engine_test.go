package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cloutcast/settler/internal/domain"
)

type fakeMarketStore struct {
	markets []domain.Market
	err     error
}

func (s *fakeMarketStore) ListOpenWithBets(ctx context.Context) ([]domain.Market, error) {
	return s.markets, s.err
}

func (s *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	for _, m := range s.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

type fakeLedger struct {
	settled    map[string]domain.Settlement
	expired    map[string]time.Time
	pools      map[domain.RewardPool]float64
	failSettle map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		settled:    make(map[string]domain.Settlement),
		expired:    make(map[string]time.Time),
		pools:      make(map[domain.RewardPool]float64),
		failSettle: make(map[string]error),
	}
}

func (l *fakeLedger) ApplySettlement(ctx context.Context, s domain.Settlement) error {
	if err, ok := l.failSettle[s.MarketID]; ok {
		return err
	}
	if _, ok := l.settled[s.MarketID]; ok {
		return domain.ErrAlreadySettled
	}
	l.settled[s.MarketID] = s
	for pool, inc := range s.PoolIncrements {
		l.pools[pool] += inc
	}
	return nil
}

func (l *fakeLedger) ApplyExpiry(ctx context.Context, marketID string, closedAt time.Time) error {
	l.expired[marketID] = closedAt
	return nil
}

func (l *fakeLedger) PoolBalances(ctx context.Context) (map[domain.RewardPool]float64, error) {
	out := make(map[domain.RewardPool]float64, len(l.pools))
	for k, v := range l.pools {
		out[k] = v
	}
	return out, nil
}

type fakePrices struct {
	quotes map[string]float64
}

func (p *fakePrices) Fetch(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range symbols {
		if price, ok := p.quotes[s]; ok {
			out[s] = price
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(markets *fakeMarketStore, ledger *fakeLedger, prices *fakePrices) *Engine {
	return New(markets, ledger, prices, DefaultRates(), Options{}, testLogger())
}

func priceTriggered(id, symbol string, strike float64, bets ...domain.Bet) domain.Market {
	return domain.Market{
		ID:          id,
		Title:       "Will " + symbol + " trade above strike?",
		Outcomes:    [2]string{"Yes", "No"},
		Category:    domain.CategoryPrice24h,
		Status:      domain.MarketStatusActive,
		Symbol:      symbol,
		StrikePrice: strike,
		Pools:       [2]float64{300, 100},
		EndsAt:      time.Now().Add(time.Hour),
		Bets:        bets,
	}
}

func TestRunFullPass(t *testing.T) {
	markets := &fakeMarketStore{markets: []domain.Market{
		priceTriggered("fire", "SOL", 6.80,
			domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 300},
		),
		priceTriggered("below", "ETH", 5000),
		priceTriggered("noprice", "OBSCURE", 1),
		{
			ID:       "nomatch",
			Title:    "SOL to the moon?",
			Category: domain.CategoryPrice24h,
			Status:   domain.MarketStatusActive,
			EndsAt:   time.Now().Add(time.Hour),
		},
		{
			ID:       "sports",
			Title:    "Will the Lakers win tonight?",
			Category: domain.CategorySports,
			Status:   domain.MarketStatusActive,
			EndsAt:   time.Now().Add(-time.Hour),
		},
		{
			ID:       "stale",
			Title:    "Will it rain at the meetup?",
			Category: domain.CategoryGeneric,
			Status:   domain.MarketStatusActive,
			EndsAt:   time.Now().Add(-time.Hour),
		},
		{
			ID:       "open",
			Title:    "Will the collab happen?",
			Category: domain.CategoryGeneric,
			Status:   domain.MarketStatusActive,
			EndsAt:   time.Now().Add(time.Hour),
		},
	}}
	ledger := newFakeLedger()
	prices := &fakePrices{quotes: map[string]float64{"SOL": 6.83, "ETH": 4200}}

	summary, err := testEngine(markets, ledger, prices).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Checked != 7 {
		t.Errorf("Checked = %d, want 7", summary.Checked)
	}
	if summary.Closed != 1 {
		t.Errorf("Closed = %d, want 1", summary.Closed)
	}
	if summary.Expired != 1 {
		t.Errorf("Expired = %d, want 1", summary.Expired)
	}
	if summary.SkippedNoMatch != 1 {
		t.Errorf("SkippedNoMatch = %d, want 1", summary.SkippedNoMatch)
	}
	if summary.SkippedNoPrice != 1 {
		t.Errorf("SkippedNoPrice = %d, want 1", summary.SkippedNoPrice)
	}
	if summary.SkippedUnsupported != 1 {
		t.Errorf("SkippedUnsupported = %d, want 1", summary.SkippedUnsupported)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}
	if summary.PriceMapSize != 2 {
		t.Errorf("PriceMapSize = %d, want 2", summary.PriceMapSize)
	}

	st, ok := ledger.settled["fire"]
	if !ok {
		t.Fatal("market 'fire' was not settled")
	}
	if st.WinningOutcome != "Yes" {
		t.Errorf("winning outcome = %q, want Yes", st.WinningOutcome)
	}
	if _, ok := ledger.expired["stale"]; !ok {
		t.Error("market 'stale' was not expired")
	}
	if _, ok := ledger.settled["stale"]; ok {
		t.Error("expired market must not be settled")
	}
	if _, ok := ledger.expired["sports"]; ok {
		t.Error("sports market must be left open")
	}
}

func TestRunWriteFailureIsolated(t *testing.T) {
	markets := &fakeMarketStore{markets: []domain.Market{
		priceTriggered("bad", "SOL", 1),
		priceTriggered("good", "SOL", 1,
			domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 300},
		),
	}}
	ledger := newFakeLedger()
	ledger.failSettle["bad"] = errors.New("deadlock detected")
	prices := &fakePrices{quotes: map[string]float64{"SOL": 10}}

	summary, err := testEngine(markets, ledger, prices).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (per-market failures do not propagate)", err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Closed != 1 {
		t.Errorf("Closed = %d, want 1", summary.Closed)
	}
	if _, ok := ledger.settled["good"]; !ok {
		t.Error("healthy market must settle despite sibling failure")
	}
}

func TestRunIdempotentAcrossPasses(t *testing.T) {
	markets := &fakeMarketStore{markets: []domain.Market{
		priceTriggered("m1", "SOL", 1,
			domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 300},
		),
	}}
	ledger := newFakeLedger()
	prices := &fakePrices{quotes: map[string]float64{"SOL": 10}}
	eng := testEngine(markets, ledger, prices)

	first, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.Closed != 1 {
		t.Fatalf("first pass Closed = %d, want 1", first.Closed)
	}
	poolsAfterFirst, _ := ledger.PoolBalances(context.Background())

	// The store still reports the market open (simulating an overlapping
	// pass); the ledger's compare-and-set must make the second apply a no-op.
	second, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Closed != 0 {
		t.Errorf("second pass Closed = %d, want 0", second.Closed)
	}
	if second.Failed != 0 {
		t.Errorf("second pass Failed = %d, want 0 (already settled is not a failure)", second.Failed)
	}

	poolsAfterSecond, _ := ledger.PoolBalances(context.Background())
	for pool, bal := range poolsAfterSecond {
		if bal != poolsAfterFirst[pool] {
			t.Errorf("pool %s balance changed on repeat pass: %v -> %v", pool, poolsAfterFirst[pool], bal)
		}
	}
	if len(ledger.settled) != 1 {
		t.Errorf("settlements recorded = %d, want 1", len(ledger.settled))
	}
}

func TestRunFatalLoadError(t *testing.T) {
	markets := &fakeMarketStore{err: errors.New("connection refused")}
	ledger := newFakeLedger()
	prices := &fakePrices{}

	summary, err := testEngine(markets, ledger, prices).Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want load failure")
	}
	if summary.Checked != 0 || summary.Closed != 0 {
		t.Errorf("fatal error must return zeroed counters, got %+v", summary)
	}
}

type fakeLock struct {
	held bool
}

func (l *fakeLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return func() { l.held = false }, nil
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	markets := &fakeMarketStore{markets: []domain.Market{
		priceTriggered("m1", "SOL", 1),
	}}
	ledger := newFakeLedger()
	prices := &fakePrices{quotes: map[string]float64{"SOL": 10}}
	lock := &fakeLock{held: true}

	eng := New(markets, ledger, prices, DefaultRates(), Options{Locks: lock}, testLogger())
	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Checked != 0 {
		t.Errorf("Checked = %d, want 0 when another pass holds the lock", summary.Checked)
	}
	if len(ledger.settled) != 0 {
		t.Error("no settlement must happen when the lock is held")
	}
}
