package domain

import "time"

// RewardPool names one of the platform fee sub-accounts. Every settlement's
// fee is split across the four pools; balances only ever increase.
type RewardPool string

const (
	PoolLeaderboard RewardPool = "leaderboard"
	PoolReferral    RewardPool = "referral"
	PoolWheel       RewardPool = "wheel"
	PoolTreasury    RewardPool = "treasury"
)

// RewardPools lists all fee sub-accounts in a stable order.
var RewardPools = [4]RewardPool{PoolLeaderboard, PoolReferral, PoolWheel, PoolTreasury}

// FeeSplit is the proportional allocation of the platform fee across the
// reward pools. The four shares must sum to 1.
type FeeSplit struct {
	Leaderboard float64
	Referral    float64
	Wheel       float64
	Treasury    float64
}

// Sum returns the total of the four shares.
func (s FeeSplit) Sum() float64 {
	return s.Leaderboard + s.Referral + s.Wheel + s.Treasury
}

// DefaultFeeSplit is the platform's standard 15/10/5/70 allocation.
var DefaultFeeSplit = FeeSplit{
	Leaderboard: 0.15,
	Referral:    0.10,
	Wheel:       0.05,
	Treasury:    0.70,
}

// Payout is one winning bet's settlement credit. Tokens and Points are
// independent; either may be zero.
type Payout struct {
	BetID  string
	UserID string
	Tokens float64
	Points int64
}

// Settlement is the complete, computed outcome of settling one market. It is
// produced by the calculator and applied verbatim by the ledger in a single
// transaction.
type Settlement struct {
	MarketID       string
	WinningOutcome string
	ResolvedAt     time.Time

	// TokenFee is the platform fee taken from the losing token pool.
	// PoolIncrements allocates exactly that fee across the reward pools.
	TokenFee       float64
	PoolIncrements map[RewardPool]float64

	// PointsFee is the fee floored out of the legacy points pot.
	PointsFee int64

	Payouts []Payout
}

// RunSummary aggregates the counters of one settlement pass.
type RunSummary struct {
	RunID              string    `json:"runId"`
	Checked            int       `json:"checked"`
	Closed             int       `json:"closed"`
	Expired            int       `json:"expired"`
	SkippedNoMatch     int       `json:"skippedNoMatch"`
	SkippedNoPrice     int       `json:"skippedNoPrice"`
	SkippedUnsupported int       `json:"skippedUnsupported"`
	Failed             int       `json:"failed"`
	PriceMapSize       int       `json:"priceMapSize"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
}

// MarketOutcome records what one pass did with one market, for the audit
// trail. Error is set only for write failures.
type MarketOutcome struct {
	MarketID       string `json:"marketId"`
	Title          string `json:"title"`
	Action         string `json:"action"`
	WinningOutcome string `json:"winningOutcome,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RunReport is the full audit record of a pass: the summary plus every
// per-market outcome.
type RunReport struct {
	Summary  RunSummary      `json:"summary"`
	Outcomes []MarketOutcome `json:"outcomes"`
}
