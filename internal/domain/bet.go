package domain

import "time"

// Bet is a single user's stake on one outcome of a market. A bet may carry a
// token stake, a legacy points stake, or both; the two currencies settle
// independently.
//
// The payout fields are zero until settlement and are written at most once,
// and only when the bet's outcome matches the market's winning outcome.
type Bet struct {
	ID       string
	MarketID string
	UserID   string
	Outcome  string

	TokenStake  float64
	PointsStake int64

	TokenPayout  float64
	PointsPayout int64

	CreatedAt time.Time
}
