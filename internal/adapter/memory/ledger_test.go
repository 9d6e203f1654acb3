package memory

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_DebitAndBalance(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Credit(ctx, "alice", 100))

	require.NoError(t, l.Debit(ctx, "alice", 69))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(31), balance)
}

func TestLedger_DebitInsufficientLeavesBalance(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Credit(ctx, "alice", 10))

	err := l.Debit(ctx, "alice", 11)

	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	balance, _ := l.BalanceOf(ctx, "alice")
	assert.Equal(t, int64(10), balance)
}

func TestLedger_UnknownIdentityHasZeroBalance(t *testing.T) {
	balance, err := NewLedger().BalanceOf(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	assert.ErrorIs(t, l.Credit(ctx, "alice", 0), domain.ErrInvalidAmount)
	assert.ErrorIs(t, l.Debit(ctx, "alice", -1), domain.ErrInvalidAmount)
	_, err := l.CreditOnce(ctx, "m", "alice", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLedger_CreditOnce(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()

	applied, err := l.CreditOnce(ctx, "genesis", "admin", 1000)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = l.CreditOnce(ctx, "genesis", "admin", 1000)
	require.NoError(t, err)
	assert.False(t, applied)

	balance, _ := l.BalanceOf(ctx, "admin")
	assert.Equal(t, int64(1000), balance)
}

func TestLedger_CreditRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Credit(ctx, "alice", math.MaxInt64-1))

	err := l.Credit(ctx, "alice", 2)

	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	balance, _ := l.BalanceOf(ctx, "alice")
	assert.Equal(t, int64(math.MaxInt64-1), balance)

	require.NoError(t, l.Credit(ctx, "alice", 1))
	balance, _ = l.BalanceOf(ctx, "alice")
	assert.Equal(t, int64(math.MaxInt64), balance)
}

func TestLedger_CreditOnceOverflowLeavesMarkerUnused(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Credit(ctx, "alice", math.MaxInt64))

	applied, err := l.CreditOnce(ctx, "bonus", "alice", 1)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.False(t, applied)

	require.NoError(t, l.Debit(ctx, "alice", 10))
	applied, err = l.CreditOnce(ctx, "bonus", "alice", 1)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	require.NoError(t, l.Credit(ctx, "alice", 50))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 100 {
		wg.Go(func() {
			if l.Debit(ctx, "alice", 1) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	balance, _ := l.BalanceOf(ctx, "alice")
	assert.Zero(t, balance)
}
