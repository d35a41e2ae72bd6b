package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloutcast/settler/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL transactions.
// One market's resolution, payouts, and pool increments commit or roll back
// as a unit; a failure here leaves the market unresolved for the next pass.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// ApplySettlement writes one market's full settlement in a single
// transaction. The market update carries a resolved = FALSE predicate: when
// an overlapping pass already settled the market, zero rows are affected, the
// transaction rolls back having written nothing, and ErrAlreadySettled is
// returned so the caller treats it as a no-op.
func (s *LedgerStore) ApplySettlement(ctx context.Context, st domain.Settlement) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin settlement tx for %s: %w", st.MarketID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE markets
		 SET resolved = TRUE,
		     status = 'RESOLVED',
		     winning_outcome = $2,
		     resolved_at = $3,
		     ends_at = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND resolved = FALSE`,
		st.MarketID, st.WinningOutcome, st.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: resolve market %s: %w", st.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySettled
	}

	for _, p := range st.Payouts {
		if _, err := tx.Exec(ctx,
			`UPDATE bets SET token_payout = $2, points_payout = $3
			 WHERE id = $1`,
			p.BetID, p.Tokens, p.Points,
		); err != nil {
			return fmt.Errorf("postgres: write payout for bet %s: %w", p.BetID, err)
		}
	}

	for _, pool := range domain.RewardPools {
		inc := st.PoolIncrements[pool]
		if inc == 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE reward_pools SET balance = balance + $2, updated_at = NOW()
			 WHERE name = $1`,
			string(pool), inc,
		); err != nil {
			return fmt.Errorf("postgres: credit pool %s: %w", pool, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit settlement for %s: %w", st.MarketID, err)
	}
	return nil
}

// ApplyExpiry parks an ACTIVE market as PAUSED without settling it. Resolved
// stays false so a later manual process can still settle the market. A market
// that already left ACTIVE is a no-op.
func (s *LedgerStore) ApplyExpiry(ctx context.Context, marketID string, closedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE markets
		 SET status = 'PAUSED', ends_at = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'ACTIVE' AND resolved = FALSE`,
		marketID, closedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: expire market %s: %w", marketID, err)
	}
	return nil
}

// PoolBalances returns the current balance of every reward pool.
func (s *LedgerStore) PoolBalances(ctx context.Context) (map[domain.RewardPool]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, balance FROM reward_pools`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reward pools: %w", err)
	}
	defer rows.Close()

	balances := make(map[domain.RewardPool]float64, len(domain.RewardPools))
	for rows.Next() {
		var name string
		var balance float64
		if err := rows.Scan(&name, &balance); err != nil {
			return nil, fmt.Errorf("postgres: scan reward pool: %w", err)
		}
		balances[domain.RewardPool(name)] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list reward pools rows: %w", err)
	}
	return balances, nil
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
