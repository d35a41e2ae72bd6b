package engine

import (
	"math"
	"testing"
	"time"

	"github.com/cloutcast/settler/internal/domain"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func priceMarket(pools [2]float64, pot int64, bets ...domain.Bet) domain.Market {
	return domain.Market{
		ID:        "mkt-1",
		Title:     "Will SOL trade above $6.80 in 24 hours?",
		Outcomes:  [2]string{"Yes", "No"},
		Category:  domain.CategoryPrice24h,
		Status:    domain.MarketStatusActive,
		Pools:     pools,
		PointsPot: pot,
		Bets:      bets,
	}
}

func TestSettleScenario(t *testing.T) {
	// winningSideTotal=300, losingSideTotal=100, fee rate 0.10:
	// platformFee=10, winPool=390, payoutPerUnit=1.3.
	m := priceMarket([2]float64{300, 100}, 0,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 50},
		domain.Bet{ID: "b2", UserID: "u2", Outcome: "Yes", TokenStake: 250},
		domain.Bet{ID: "b3", UserID: "u3", Outcome: "No", TokenStake: 100},
	)

	st := Settle(m, DefaultRates(), time.Now())

	if st.WinningOutcome != "Yes" {
		t.Fatalf("WinningOutcome = %q, want Yes", st.WinningOutcome)
	}
	if !approxEqual(st.TokenFee, 10) {
		t.Errorf("TokenFee = %v, want 10", st.TokenFee)
	}
	if len(st.Payouts) != 2 {
		t.Fatalf("got %d payouts, want 2", len(st.Payouts))
	}
	if !approxEqual(st.Payouts[0].Tokens, 65) {
		t.Errorf("payout for 50 stake = %v, want 65", st.Payouts[0].Tokens)
	}
	if !approxEqual(st.Payouts[1].Tokens, 325) {
		t.Errorf("payout for 250 stake = %v, want 325", st.Payouts[1].Tokens)
	}

	wantIncrements := map[domain.RewardPool]float64{
		domain.PoolLeaderboard: 1.5,
		domain.PoolReferral:    1.0,
		domain.PoolWheel:       0.5,
		domain.PoolTreasury:    7.0,
	}
	for pool, want := range wantIncrements {
		if got := st.PoolIncrements[pool]; !approxEqual(got, want) {
			t.Errorf("PoolIncrements[%s] = %v, want %v", pool, got, want)
		}
	}
}

func TestSettlePoolConservation(t *testing.T) {
	m := priceMarket([2]float64{137.5, 62.25}, 0,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 100},
		domain.Bet{ID: "b2", UserID: "u2", Outcome: "Yes", TokenStake: 37.5},
		domain.Bet{ID: "b3", UserID: "u3", Outcome: "No", TokenStake: 62.25},
	)

	st := Settle(m, DefaultRates(), time.Now())

	var paid float64
	for _, p := range st.Payouts {
		paid += p.Tokens
	}
	if !approxEqual(paid+st.TokenFee, m.TotalPool()) {
		t.Errorf("payouts (%v) + fee (%v) = %v, want total pool %v",
			paid, st.TokenFee, paid+st.TokenFee, m.TotalPool())
	}
}

func TestSettleFeeSplitConservation(t *testing.T) {
	m := priceMarket([2]float64{300, 123.45}, 0,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 300},
	)

	st := Settle(m, DefaultRates(), time.Now())

	var split float64
	for _, inc := range st.PoolIncrements {
		split += inc
	}
	if !approxEqual(split, st.TokenFee) {
		t.Errorf("sum of pool increments = %v, want fee %v", split, st.TokenFee)
	}
}

func TestSettleZeroWinnerGuard(t *testing.T) {
	// Nobody bet on the winning side: no token payouts, no panic, fee still
	// computed from the losing pool.
	m := priceMarket([2]float64{0, 200}, 0,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "No", TokenStake: 200},
	)

	st := Settle(m, DefaultRates(), time.Now())

	if len(st.Payouts) != 0 {
		t.Errorf("got %d payouts, want 0", len(st.Payouts))
	}
	if !approxEqual(st.TokenFee, 20) {
		t.Errorf("TokenFee = %v, want 20", st.TokenFee)
	}
}

func TestSettlePointsPath(t *testing.T) {
	// Pot 1000, 5% fee floored: fee=50, distributable=950. Winning points
	// stakes 300 and 100 split it 712 / 237 (floored).
	m := priceMarket([2]float64{0, 0}, 1000,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", PointsStake: 300},
		domain.Bet{ID: "b2", UserID: "u2", Outcome: "Yes", PointsStake: 100},
		domain.Bet{ID: "b3", UserID: "u3", Outcome: "No", PointsStake: 600},
	)

	st := Settle(m, DefaultRates(), time.Now())

	if st.PointsFee != 50 {
		t.Errorf("PointsFee = %d, want 50", st.PointsFee)
	}
	if len(st.Payouts) != 2 {
		t.Fatalf("got %d payouts, want 2", len(st.Payouts))
	}
	if st.Payouts[0].Points != 712 {
		t.Errorf("points payout for 300 stake = %d, want 712", st.Payouts[0].Points)
	}
	if st.Payouts[1].Points != 237 {
		t.Errorf("points payout for 100 stake = %d, want 237", st.Payouts[1].Points)
	}
	for _, p := range st.Payouts {
		if p.Tokens != 0 {
			t.Errorf("bet %s has token payout %v with no token stakes", p.BetID, p.Tokens)
		}
	}
}

func TestSettlePointsFeeFloors(t *testing.T) {
	m := priceMarket([2]float64{0, 0}, 99,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", PointsStake: 99},
	)

	st := Settle(m, DefaultRates(), time.Now())

	// floor(99 * 0.05) = 4, not 5.
	if st.PointsFee != 4 {
		t.Errorf("PointsFee = %d, want 4", st.PointsFee)
	}
	if st.Payouts[0].Points != 95 {
		t.Errorf("points payout = %d, want 95", st.Payouts[0].Points)
	}
}

func TestSettleCurrenciesIndependent(t *testing.T) {
	// A bet staked in both currencies receives one merged payout; a token-only
	// winner is unaffected by the points pot and vice versa.
	m := priceMarket([2]float64{100, 50}, 200,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 100, PointsStake: 150},
		domain.Bet{ID: "b2", UserID: "u2", Outcome: "Yes", PointsStake: 50},
		domain.Bet{ID: "b3", UserID: "u3", Outcome: "No", TokenStake: 50, PointsStake: 0},
	)

	st := Settle(m, DefaultRates(), time.Now())

	if len(st.Payouts) != 2 {
		t.Fatalf("got %d payouts, want 2", len(st.Payouts))
	}

	// Token side: fee=5, winPool=145, perUnit=1.45, b1 gets 145.
	if !approxEqual(st.Payouts[0].Tokens, 145) {
		t.Errorf("b1 tokens = %v, want 145", st.Payouts[0].Tokens)
	}
	// Points side: fee=floor(200*0.05)=10, distributable=190, stakes 150/50.
	if st.Payouts[0].Points != 142 {
		t.Errorf("b1 points = %d, want 142", st.Payouts[0].Points)
	}
	if st.Payouts[1].Tokens != 0 {
		t.Errorf("b2 tokens = %v, want 0", st.Payouts[1].Tokens)
	}
	if st.Payouts[1].Points != 47 {
		t.Errorf("b2 points = %d, want 47", st.Payouts[1].Points)
	}
}

func TestSettleNoPointsWinners(t *testing.T) {
	// Points pot exists but every points stake is on the losing side: pot is
	// not distributed.
	m := priceMarket([2]float64{100, 0}, 500,
		domain.Bet{ID: "b1", UserID: "u1", Outcome: "Yes", TokenStake: 100},
		domain.Bet{ID: "b2", UserID: "u2", Outcome: "No", PointsStake: 500},
	)

	st := Settle(m, DefaultRates(), time.Now())

	for _, p := range st.Payouts {
		if p.Points != 0 {
			t.Errorf("bet %s received %d points with no winning points stake", p.BetID, p.Points)
		}
	}
}

func TestDefaultRatesSplitSumsToOne(t *testing.T) {
	if s := DefaultRates().Split.Sum(); !approxEqual(s, 1.0) {
		t.Errorf("default fee split sums to %v, want 1.0", s)
	}
}
