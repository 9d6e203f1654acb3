package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// Ledger is an in-process token ledger. Balances are lost on restart.
type Ledger struct {
	mu       sync.Mutex
	balances map[domain.Identity]int64
	grants   map[string]struct{}
}

var (
	_ domain.TokenLedger = (*Ledger)(nil)
	_ domain.TokenFunder = (*Ledger)(nil)
)

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[domain.Identity]int64),
		grants:   make(map[string]struct{}),
	}
}

func (l *Ledger) BalanceOf(_ context.Context, id domain.Identity) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[id], nil
}

func (l *Ledger) Debit(_ context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[id] < amount {
		return fmt.Errorf("%w: balance %d, debit %d", domain.ErrInsufficientBalance, l.balances[id], amount)
	}
	l.balances[id] -= amount
	return nil
}

func (l *Ledger) Credit(_ context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit(id, amount)
}

func (l *Ledger) CreditOnce(_ context.Context, marker string, id domain.Identity, amount int64) (bool, error) {
	if amount < 1 {
		return false, fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, done := l.grants[marker]; done {
		return false, nil
	}
	if err := l.credit(id, amount); err != nil {
		return false, err
	}
	l.grants[marker] = struct{}{}
	return true, nil
}

// credit must be called with mu held.
func (l *Ledger) credit(id domain.Identity, amount int64) error {
	if l.balances[id] > math.MaxInt64-amount {
		return fmt.Errorf("%w: balance %d, credit %d", domain.ErrBalanceOverflow, l.balances[id], amount)
	}
	l.balances[id] += amount
	return nil
}
