// Package price implements the USD price lookup used to resolve
// price-triggered markets: an HTTP feed client and a bounded-concurrency
// batcher that snapshots every symbol a settlement pass needs.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloutcast/settler/internal/domain"
)

// Config holds the price feed connection parameters.
type Config struct {
	// BaseURL is the feed host, e.g. "https://min-api.cryptocompare.com".
	BaseURL string

	// APIKey is sent as an Apikey authorization header when set.
	APIKey string

	Timeout time.Duration
}

// Client fetches spot prices from a CryptoCompare-compatible single-symbol
// price endpoint: GET /data/price?fsym=<SYM>&tsyms=USD.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a price feed Client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "price_feed")),
	}
}

// Lookup returns the current USD price for symbol. It returns
// domain.ErrPriceUnavailable when the feed has no USD quote for the symbol.
func (c *Client) Lookup(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/data/price?fsym=%s&tsyms=USD",
		c.baseURL, url.QueryEscape(strings.ToUpper(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("price: build request for %s: %w", symbol, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price: lookup %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price: lookup %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var quotes map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return 0, fmt.Errorf("price: decode response for %s: %w", symbol, err)
	}

	usd, ok := quotes["USD"]
	if !ok || usd <= 0 {
		return 0, fmt.Errorf("price: %s: %w", symbol, domain.ErrPriceUnavailable)
	}
	return usd, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*Client)(nil)
