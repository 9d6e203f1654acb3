package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// Ledger stores balances in token_balances.
type Ledger struct {
	db *sql.DB
}

var (
	_ domain.TokenLedger = (*Ledger)(nil)
	_ domain.TokenFunder = (*Ledger)(nil)
)

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx, `SELECT balance FROM token_balances WHERE identity = ?`, string(id)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) Debit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}
	return debit(ctx, l.db, id, amount)
}

func (l *Ledger) Credit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}
	if err := credit(ctx, l.db, id, amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (l *Ledger) CreditOnce(ctx context.Context, marker string, id domain.Identity, amount int64) (bool, error) {
	if amount < 1 {
		return false, fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO token_grants (marker, identity, amount, granted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (marker) DO NOTHING`,
		marker, string(id), amount, now())
	if err != nil {
		return false, fmt.Errorf("insert grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := credit(ctx, tx, id, amount); err != nil {
		return false, fmt.Errorf("credit grant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit grant: %w", err)
	}
	return true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// debit removes amount only if the balance covers it.
func debit(ctx context.Context, db execer, id domain.Identity, amount int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE token_balances
		SET balance = balance - ?1, updated_at = ?2
		WHERE identity = ?3 AND balance >= ?1`,
		amount, now(), string(id))
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: debit %d", domain.ErrInsufficientBalance, amount)
	}
	return nil
}

// credit adds amount unless the sum would pass math.MaxInt64. SQLite would
// otherwise turn the overflowing sum into a REAL.
func credit(ctx context.Context, db execer, id domain.Identity, amount int64) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO token_balances (identity, balance, updated_at)
		VALUES (?1, ?2, ?3)
		ON CONFLICT (identity) DO UPDATE
		SET balance = balance + excluded.balance, updated_at = excluded.updated_at
		WHERE balance <= ?4 - excluded.balance`,
		string(id), amount, now(), int64(math.MaxInt64))
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: credit %d", domain.ErrBalanceOverflow, amount)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
