package engine

import (
	"testing"
	"time"

	"github.com/cloutcast/settler/internal/domain"
	"github.com/cloutcast/settler/internal/title"
)

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	active := func(cat domain.MarketCategory, endsAt time.Time) domain.Market {
		return domain.Market{
			ID:       "mkt",
			Category: cat,
			Status:   domain.MarketStatusActive,
			EndsAt:   endsAt,
		}
	}

	priceClass := title.Classification{
		Kind:   title.KindPriceTriggered,
		Symbol: "SOL",
		Strike: 6.80,
		Parsed: true,
	}

	tests := []struct {
		name   string
		market domain.Market
		class  title.Classification
		prices map[string]float64
		want   Action
	}{
		{
			name:   "price above strike fires",
			market: active(domain.CategoryPrice24h, later),
			class:  priceClass,
			prices: map[string]float64{"SOL": 6.83},
			want:   ActionSettle,
		},
		{
			name:   "price exactly at strike fires",
			market: active(domain.CategoryPrice24h, later),
			class:  priceClass,
			prices: map[string]float64{"SOL": 6.80},
			want:   ActionSettle,
		},
		{
			name:   "price below strike stays open",
			market: active(domain.CategoryPrice24h, later),
			class:  priceClass,
			prices: map[string]float64{"SOL": 6.79},
			want:   ActionNone,
		},
		{
			name:   "missing price skips",
			market: active(domain.CategoryPrice24h, later),
			class:  priceClass,
			prices: map[string]float64{},
			want:   ActionSkipNoPrice,
		},
		{
			name:   "unparseable trigger skips",
			market: active(domain.CategoryPrice24h, later),
			class:  title.Classification{Kind: title.KindPriceTriggered},
			prices: map[string]float64{"SOL": 100},
			want:   ActionSkipNoMatch,
		},
		{
			name:   "sports market is unsupported",
			market: active(domain.CategorySports, earlier),
			class:  title.Classification{Kind: title.KindManualOnly},
			want:   ActionSkipUnsupported,
		},
		{
			name:   "generic market past its end expires",
			market: active(domain.CategoryGeneric, earlier),
			class:  title.Classification{Kind: title.KindTimeBound},
			want:   ActionExpire,
		},
		{
			name:   "generic market before its end stays open",
			market: active(domain.CategoryGeneric, later),
			class:  title.Classification{Kind: title.KindTimeBound},
			want:   ActionNone,
		},
		{
			name: "paused market never transitions",
			market: domain.Market{
				Category: domain.CategoryGeneric,
				Status:   domain.MarketStatusPaused,
				EndsAt:   earlier,
			},
			class: title.Classification{Kind: title.KindTimeBound},
			want:  ActionNone,
		},
		{
			name: "resolved market never transitions",
			market: domain.Market{
				Category: domain.CategoryPrice24h,
				Status:   domain.MarketStatusResolved,
				Resolved: true,
				EndsAt:   later,
			},
			class:  priceClass,
			prices: map[string]float64{"SOL": 100},
			want:   ActionNone,
		},
		{
			name: "cancelled market never transitions",
			market: domain.Market{
				Category: domain.CategoryGeneric,
				Status:   domain.MarketStatusCancelled,
				EndsAt:   earlier,
			},
			class: title.Classification{Kind: title.KindTimeBound},
			want:  ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.market, tt.class, tt.prices, now)
			if got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}
