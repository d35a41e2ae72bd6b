package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "ACTIVE"
	MarketStatusPaused    MarketStatus = "PAUSED"
	MarketStatusResolved  MarketStatus = "RESOLVED"
	MarketStatusCancelled MarketStatus = "CANCELLED"
)

// MarketCategory classifies how a market is meant to be resolved. Categories
// are validated at the store boundary; unknown values never enter the domain.
type MarketCategory string

const (
	// CategoryPrice24h is the standard "trade above strike within 24 hours"
	// market. Resolution fires automatically off the price feed.
	CategoryPrice24h MarketCategory = "PRICE_24H"

	// CategoryPriceTarget is a price-triggered market without the 24-hour
	// framing. Same resolution rules as PRICE_24H.
	CategoryPriceTarget MarketCategory = "PRICE_TARGET"

	// CategorySports requires a fixture result and is resolved manually.
	CategorySports MarketCategory = "SPORTS"

	// CategoryGeneric is any time-bound market that simply closes for betting
	// once its scheduled end passes.
	CategoryGeneric MarketCategory = "GENERIC"
)

// Valid reports whether c is a known category.
func (c MarketCategory) Valid() bool {
	switch c {
	case CategoryPrice24h, CategoryPriceTarget, CategorySports, CategoryGeneric:
		return true
	}
	return false
}

// PriceTriggered reports whether markets of this category resolve off the
// price feed.
func (c MarketCategory) PriceTriggered() bool {
	return c == CategoryPrice24h || c == CategoryPriceTarget
}

// Market is a binary-outcome prediction market. Pools[i] is the running token
// total staked on Outcomes[i]; PointsPot is the separate legacy points pool.
//
// Resolved is the single source of truth for "settlement has run". It moves
// false -> true exactly once; once true, the pools and WinningOutcome are
// immutable. The settlement engine is the exclusive writer of the resolution
// fields; everything else on the market is read-only input here.
type Market struct {
	ID       string
	Title    string
	Outcomes [2]string
	Category MarketCategory
	Status   MarketStatus
	Resolved bool

	// Symbol and StrikePrice are the structured trigger fields written at
	// market creation. Legacy rows predate them and carry the trigger only in
	// the title; see the title package for the fallback parser.
	Symbol      string
	StrikePrice float64

	Pools     [2]float64
	PointsPot int64

	EndsAt         time.Time
	WinningOutcome *string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Bets are loaded alongside the market for settlement passes.
	Bets []Bet
}

// TotalPool returns the combined token pool across both outcomes.
func (m Market) TotalPool() float64 {
	return m.Pools[0] + m.Pools[1]
}
