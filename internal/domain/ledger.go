package domain

import "context"

// TokenLedger is the external balance store the novel debits against but does not own.
// Debit must be atomic: it either removes the full amount or fails with
// ErrInsufficientBalance, leaving the balance untouched.
type TokenLedger interface {
	BalanceOf(ctx context.Context, id Identity) (int64, error)
	Debit(ctx context.Context, id Identity, amount int64) error
}

// TokenFunder credits balances. It is used by genesis seeding, operator tooling and
// refunds of writes that could not be saved.
type TokenFunder interface {
	Credit(ctx context.Context, id Identity, amount int64) error
	// CreditOnce credits amount to id only if marker has never been used on this ledger.
	// Returns true when the credit was applied.
	CreditOnce(ctx context.Context, marker string, id Identity, amount int64) (bool, error)
}
