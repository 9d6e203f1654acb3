package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/worldnovel/internal/domain"
)

// Ledger stores balances in token_balances. The CHECK (balance >= 0) constraint
// backs the conditional UPDATE used for debits.
type Ledger struct {
	pool *pgxpool.Pool
}

var (
	_ domain.TokenLedger = (*Ledger)(nil)
	_ domain.TokenFunder = (*Ledger)(nil)
)

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM token_balances WHERE identity = $1`, string(id)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) Debit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}
	return debit(ctx, l.pool, id, amount)
}

func (l *Ledger) Credit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}
	if err := credit(ctx, l.pool, id, amount); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (l *Ledger) CreditOnce(ctx context.Context, marker string, id domain.Identity, amount int64) (bool, error) {
	if amount < 1 {
		return false, fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	var applied bool
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO token_grants (marker, identity, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (marker) DO NOTHING`,
			marker, string(id), amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		applied = true
		return credit(ctx, tx, id, amount)
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply grant %q: %w", marker, err)
	}
	return applied, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// debit removes amount only if the balance covers it.
func debit(ctx context.Context, db execer, id domain.Identity, amount int64) error {
	tag, err := db.Exec(ctx, `
		UPDATE token_balances
		SET balance = balance - $2, updated_at = now()
		WHERE identity = $1 AND balance >= $2`,
		string(id), amount)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: debit %d", domain.ErrInsufficientBalance, amount)
	}
	return nil
}

// credit adds amount unless the sum would pass the BIGINT range.
func credit(ctx context.Context, db execer, id domain.Identity, amount int64) error {
	tag, err := db.Exec(ctx, `
		INSERT INTO token_balances (identity, balance)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE
		SET balance = token_balances.balance + EXCLUDED.balance, updated_at = now()
		WHERE token_balances.balance <= $3 - EXCLUDED.balance`,
		string(id), amount, int64(math.MaxInt64))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: credit %d", domain.ErrBalanceOverflow, amount)
	}
	return nil
}
