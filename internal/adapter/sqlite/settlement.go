package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// Settlement debits and saves in one transaction. It serves deployments that keep
// the ledger and the novel state in the same database file.
type Settlement struct {
	db *sql.DB
}

var _ domain.Settlement = (*Settlement)(nil)

func NewSettlement(db *sql.DB) *Settlement {
	return &Settlement{db: db}
}

func (s *Settlement) Settle(ctx context.Context, id domain.Identity, amount int64, snapshot *domain.Snapshot) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if amount > 0 {
		if err := debit(ctx, tx, id, amount); err != nil {
			return err
		}
	}
	if err := saveSnapshot(ctx, tx, snapshot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}
