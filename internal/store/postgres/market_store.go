package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloutcast/settler/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, title, outcome_1, outcome_2, category, status, resolved,
	COALESCE(symbol, ''), COALESCE(strike_price, 0), pool_1, pool_2, points_pot,
	ends_at, winning_outcome, resolved_at, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market, validating its
// category so unknown values never reach the engine.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var category, status string
	err := row.Scan(
		&m.ID, &m.Title, &m.Outcomes[0], &m.Outcomes[1],
		&category, &status, &m.Resolved,
		&m.Symbol, &m.StrikePrice,
		&m.Pools[0], &m.Pools[1], &m.PointsPot,
		&m.EndsAt, &m.WinningOutcome, &m.ResolvedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Category = domain.MarketCategory(category)
	if !m.Category.Valid() {
		return domain.Market{}, fmt.Errorf("market %s category %q: %w", m.ID, category, domain.ErrInvalidCategory)
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// ListOpenWithBets returns every ACTIVE, unresolved market with its bets
// attached. This is the working set of one settlement pass.
func (s *MarketStore) ListOpenWithBets(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE status = 'ACTIVE' AND resolved = FALSE
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	index := make(map[string]int)
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan open market: %w", err)
		}
		index[m.ID] = len(markets)
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open markets rows: %w", err)
	}
	if len(markets) == 0 {
		return markets, nil
	}

	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}

	betRows, err := s.pool.Query(ctx,
		`SELECT id, market_id, user_id, outcome, token_stake, points_stake,
		        token_payout, points_payout, created_at
		 FROM bets WHERE market_id = ANY($1)
		 ORDER BY created_at`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for open markets: %w", err)
	}
	defer betRows.Close()

	for betRows.Next() {
		var b domain.Bet
		if err := betRows.Scan(
			&b.ID, &b.MarketID, &b.UserID, &b.Outcome,
			&b.TokenStake, &b.PointsStake,
			&b.TokenPayout, &b.PointsPayout, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		if i, ok := index[b.MarketID]; ok {
			markets[i].Bets = append(markets[i].Bets, b)
		}
	}
	if err := betRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}

	return markets, nil
}

// GetByID retrieves a market by its primary key, without bets.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
