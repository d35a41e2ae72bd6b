package engine

import (
	"time"

	"github.com/cloutcast/settler/internal/domain"
	"github.com/cloutcast/settler/internal/title"
)

// Action is what one settlement pass decides to do with one market.
type Action int

const (
	// ActionNone leaves the market untouched.
	ActionNone Action = iota

	// ActionSettle fires the price trigger: compute and write the payout.
	ActionSettle

	// ActionExpire parks a time-bound market as PAUSED; no payout.
	ActionExpire

	// ActionSkipNoPrice means the feed had no quote for the symbol this pass.
	ActionSkipNoPrice

	// ActionSkipNoMatch means the trigger could not be extracted from the
	// market. Nothing is written, so the market is retried next pass.
	ActionSkipNoMatch

	// ActionSkipUnsupported marks a manual-only market. It is counted and
	// deliberately left open for an external resolution process.
	ActionSkipUnsupported
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSettle:
		return "settle"
	case ActionExpire:
		return "expire"
	case ActionSkipNoPrice:
		return "skip_no_price"
	case ActionSkipNoMatch:
		return "skip_no_match"
	case ActionSkipUnsupported:
		return "skip_unsupported"
	default:
		return "unknown"
	}
}

// Decide evaluates the resolution state machine for one market. It is a pure
// function of the market, its classification, the pass's price snapshot, and
// the current time.
//
// A price-triggered market fires when its symbol's price is at or above the
// strike. A generic time-bound market expires once its scheduled end passes;
// expiry closes betting but does not settle. Only ACTIVE, unresolved markets
// ever transition.
func Decide(m domain.Market, c title.Classification, prices map[string]float64, now time.Time) Action {
	if m.Status != domain.MarketStatusActive || m.Resolved {
		return ActionNone
	}

	switch c.Kind {
	case title.KindPriceTriggered:
		if !c.Parsed {
			return ActionSkipNoMatch
		}
		price, ok := prices[c.Symbol]
		if !ok {
			return ActionSkipNoPrice
		}
		if price >= c.Strike {
			return ActionSettle
		}
		return ActionNone

	case title.KindManualOnly:
		return ActionSkipUnsupported

	default:
		if now.After(m.EndsAt) {
			return ActionExpire
		}
		return ActionNone
	}
}
