package engine

import (
	"math"
	"time"

	"github.com/cloutcast/settler/internal/domain"
)

// winnerIndex is the outcome slot credited when the price trigger fires. The
// platform creates price markets with the "rises above strike" outcome at
// slot 0; settlement relies on that ordering rather than inspecting labels.
const winnerIndex = 0

// Rates bundles the fee configuration applied at settlement.
type Rates struct {
	// TokenFeeRate is the fraction of the losing token pool retained as the
	// platform fee.
	TokenFeeRate float64

	// PointsFeeRate is the fraction floored out of the legacy points pot.
	PointsFeeRate float64

	// Split allocates the token fee across the reward pools. Must sum to 1.
	Split domain.FeeSplit
}

// DefaultRates returns the platform's standard fee configuration.
func DefaultRates() Rates {
	return Rates{
		TokenFeeRate:  0.10,
		PointsFeeRate: 0.05,
		Split:         domain.DefaultFeeSplit,
	}
}

// Settle computes the complete distribution for one fired market: platform
// fee, per-bet token payouts, reward-pool increments, and the independent
// legacy points distribution. It has no side effects; the result is applied
// verbatim by the ledger.
//
// Token path: fee = losingPool * TokenFeeRate; the remaining total pool is
// distributed to winning stakes pro rata. When nobody staked on the winning
// outcome there is nothing to distribute and no payouts are produced.
//
// Points path: an independent fee (floor math, integer points) is taken from
// the market's pot and the remainder split across winning points stakes,
// flooring each share.
func Settle(m domain.Market, r Rates, resolvedAt time.Time) domain.Settlement {
	winner := m.Outcomes[winnerIndex]
	winningTotal := m.Pools[winnerIndex]
	losingTotal := m.Pools[1-winnerIndex]
	totalPool := winningTotal + losingTotal

	fee := losingTotal * r.TokenFeeRate
	winPool := totalPool - fee

	var perUnit float64
	if winningTotal > 0 {
		perUnit = winPool / winningTotal
	}

	pointsFee := int64(math.Floor(float64(m.PointsPot) * r.PointsFeeRate))
	pointsDistributable := m.PointsPot - pointsFee

	var winningPoints int64
	for _, b := range m.Bets {
		if b.Outcome == winner {
			winningPoints += b.PointsStake
		}
	}

	var payouts []domain.Payout
	for _, b := range m.Bets {
		if b.Outcome != winner {
			continue
		}
		p := domain.Payout{BetID: b.ID, UserID: b.UserID}
		if winningTotal > 0 && b.TokenStake > 0 {
			p.Tokens = b.TokenStake * perUnit
		}
		if winningPoints > 0 && b.PointsStake > 0 {
			// Integer division floors each share.
			p.Points = b.PointsStake * pointsDistributable / winningPoints
		}
		if p.Tokens > 0 || p.Points > 0 {
			payouts = append(payouts, p)
		}
	}

	return domain.Settlement{
		MarketID:       m.ID,
		WinningOutcome: winner,
		ResolvedAt:     resolvedAt,
		TokenFee:       fee,
		PointsFee:      pointsFee,
		PoolIncrements: map[domain.RewardPool]float64{
			domain.PoolLeaderboard: fee * r.Split.Leaderboard,
			domain.PoolReferral:    fee * r.Split.Referral,
			domain.PoolWheel:       fee * r.Split.Wheel,
			domain.PoolTreasury:    fee * r.Split.Treasury,
		},
		Payouts: payouts,
	}
}
