package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/worldnovel/internal/domain"
)

// Settlement debits and saves in one transaction. It serves deployments that keep
// the ledger and the novel state in the same database.
type Settlement struct {
	pool *pgxpool.Pool
}

var _ domain.Settlement = (*Settlement)(nil)

func NewSettlement(pool *pgxpool.Pool) *Settlement {
	return &Settlement{pool: pool}
}

func (s *Settlement) Settle(ctx context.Context, id domain.Identity, amount int64, snapshot *domain.Snapshot) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if amount > 0 {
			if err := debit(ctx, tx, id, amount); err != nil {
				return err
			}
		}
		return saveSnapshot(ctx, tx, snapshot)
	})
}
