package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cloutcast/settler/internal/domain"
)

// PriceCache implements domain.PriceCache as plain string keys with a short
// TTL. One settlement pass every one to two minutes only needs prices fresh
// on that order, so entries expire on their own rather than being refreshed.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. ttl <= 0
// selects a 60 second default.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(symbol string) string {
	return "price:usd:" + symbol
}

// Get retrieves the cached USD price for a symbol. It returns
// domain.ErrNotFound when no fresh entry exists.
func (pc *PriceCache) Get(ctx context.Context, symbol string) (float64, error) {
	val, err := pc.rdb.Get(ctx, priceKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	return price, nil
}

// Set stores the USD price for a symbol with the cache TTL.
func (pc *PriceCache) Set(ctx context.Context, symbol string, price float64) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := pc.rdb.Set(ctx, priceKey(symbol), val, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
