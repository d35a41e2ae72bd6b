package price

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cloutcast/settler/internal/domain"
)

// defaultConcurrency bounds the price feed fan-out when no limit is
// configured.
const defaultConcurrency = 4

// Batcher resolves a set of symbols to USD prices with bounded concurrency.
// An optional snapshot cache is consulted before the feed so back-to-back
// passes on the trigger cadence do not hammer the provider.
//
// A failed or missing lookup leaves the symbol absent from the result map; it
// is never retried within the pass.
type Batcher struct {
	source domain.PriceSource
	cache  domain.PriceCache // optional
	limit  int
	logger *slog.Logger
}

// NewBatcher creates a Batcher. cache may be nil; limit <= 0 selects the
// default concurrency bound.
func NewBatcher(source domain.PriceSource, cache domain.PriceCache, limit int, logger *slog.Logger) *Batcher {
	if limit <= 0 {
		limit = defaultConcurrency
	}
	return &Batcher{
		source: source,
		cache:  cache,
		limit:  limit,
		logger: logger.With(slog.String("component", "price_batch")),
	}
}

// Fetch looks up every distinct symbol and returns the snapshot map. Symbols
// are deduplicated and uppercased before lookup.
func (b *Batcher) Fetch(ctx context.Context, symbols []string) map[string]float64 {
	distinct := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			distinct[s] = struct{}{}
		}
	}
	if len(distinct) == 0 {
		return map[string]float64{}
	}

	var mu sync.Mutex
	out := make(map[string]float64, len(distinct))

	var g errgroup.Group
	g.SetLimit(b.limit)

	for sym := range distinct {
		g.Go(func() error {
			price, err := b.lookup(ctx, sym)
			if err != nil {
				// Absent, not retried: the market is skipped this pass and
				// picked up again on the next one.
				if !errors.Is(err, domain.ErrPriceUnavailable) {
					b.logger.WarnContext(ctx, "price lookup failed",
						slog.String("symbol", sym),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			mu.Lock()
			out[sym] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// lookup checks the snapshot cache then falls back to the feed, populating
// the cache on success.
func (b *Batcher) lookup(ctx context.Context, symbol string) (float64, error) {
	if b.cache != nil {
		price, err := b.cache.Get(ctx, symbol)
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			b.logger.WarnContext(ctx, "price cache read failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	price, err := b.source.Lookup(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, symbol, price); err != nil {
			b.logger.WarnContext(ctx, "price cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return price, nil
}
