// Package title classifies markets by resolution strategy and extracts the
// price trigger (symbol and strike) for price-triggered markets.
//
// New markets carry the trigger in structured fields; legacy rows encode it
// only in the display title, of the shape
//
//	Will <SYMBOL> trade above $<STRIKE> in 24 hours?
//
// so a fixed-pattern parser remains as a migration adapter for those rows.
package title

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cloutcast/settler/internal/domain"
)

// Kind is a market's resolution strategy.
type Kind int

const (
	// KindPriceTriggered markets resolve automatically off the price feed.
	KindPriceTriggered Kind = iota

	// KindTimeBound markets close for betting when their scheduled end
	// passes; no automatic payout.
	KindTimeBound

	// KindManualOnly markets (sports fixtures) are left open for a manual
	// resolution process outside this engine.
	KindManualOnly
)

func (k Kind) String() string {
	switch k {
	case KindPriceTriggered:
		return "price_triggered"
	case KindTimeBound:
		return "time_bound"
	case KindManualOnly:
		return "manual_only"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying one market. Symbol, Strike and
// Parsed are meaningful only for KindPriceTriggered; Parsed is false when
// neither structured fields nor the title yielded a usable trigger.
type Classification struct {
	Kind   Kind
	Symbol string
	Strike float64
	Parsed bool
}

var strikePattern = regexp.MustCompile(
	`^Will\s+([A-Za-z0-9]+)\s+trade\s+above\s+\$([0-9]+(?:\.[0-9]+)?)\s+in\s+24\s+hours\?$`,
)

// Classify determines how the given market resolves. It is a pure function of
// the market's category, structured trigger fields, and title.
func Classify(m domain.Market) Classification {
	switch {
	case m.Category.PriceTriggered():
		if m.Symbol != "" && m.StrikePrice > 0 {
			return Classification{
				Kind:   KindPriceTriggered,
				Symbol: strings.ToUpper(m.Symbol),
				Strike: m.StrikePrice,
				Parsed: true,
			}
		}
		sym, strike, ok := ParseTitle(m.Title)
		return Classification{
			Kind:   KindPriceTriggered,
			Symbol: sym,
			Strike: strike,
			Parsed: ok,
		}
	case m.Category == domain.CategorySports:
		return Classification{Kind: KindManualOnly}
	default:
		return Classification{Kind: KindTimeBound}
	}
}

// ParseTitle extracts the uppercased symbol and numeric strike from a legacy
// market title. It reports false when the title does not match the fixed
// pattern or the strike is not numeric.
func ParseTitle(t string) (symbol string, strike float64, ok bool) {
	match := strikePattern.FindStringSubmatch(strings.TrimSpace(t))
	if match == nil {
		return "", 0, false
	}
	strike, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return "", 0, false
	}
	return strings.ToUpper(match[1]), strike, true
}
