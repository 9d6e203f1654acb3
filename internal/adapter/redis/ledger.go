package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pscheid92/worldnovel/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// debitScript removes ARGV[1] tokens only if the balance covers them.
// Returns the new balance, or -1 when funds are short.
var debitScript = goredis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
  return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// creditScript adds ARGV[1] tokens. Returns the new balance, or -1 when the sum
// would overflow; INCRBY refuses that without touching the key.
var creditScript = goredis.NewScript(`
local result = redis.pcall('INCRBY', KEYS[1], ARGV[1])
if type(result) == 'table' and result.err and string.find(result.err, 'overflow') then
  return -1
end
return result
`)

// creditOnceScript credits KEYS[2] and claims the grant marker KEYS[1] in one step.
// The marker is only claimed once the credit succeeded.
// ARGV: [1]=amount, [2]=identity recorded on the marker
// Returns 1 when applied, 0 when the marker was used, -1 on overflow.
var creditOnceScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local result = redis.pcall('INCRBY', KEYS[2], ARGV[1])
if type(result) == 'table' and result.err then
  if string.find(result.err, 'overflow') then
    return -1
  end
  return result
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// Ledger keeps one integer balance key per identity.
type Ledger struct {
	rdb goredis.Cmdable
}

var (
	_ domain.TokenLedger = (*Ledger)(nil)
	_ domain.TokenFunder = (*Ledger)(nil)
)

func NewLedger(rdb goredis.Cmdable) *Ledger {
	return &Ledger{rdb: rdb}
}

func (l *Ledger) BalanceOf(ctx context.Context, id domain.Identity) (int64, error) {
	raw, err := l.rdb.Get(ctx, balanceKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return balance, nil
}

func (l *Ledger) Debit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	result, err := debitScript.Run(ctx, l.rdb, []string{balanceKey(id)}, amount).Int64()
	if err != nil {
		return fmt.Errorf("debit script failed: %w", err)
	}
	if result < 0 {
		return fmt.Errorf("%w: debit %d", domain.ErrInsufficientBalance, amount)
	}
	return nil
}

func (l *Ledger) Credit(ctx context.Context, id domain.Identity, amount int64) error {
	if amount < 1 {
		return fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}
	result, err := creditScript.Run(ctx, l.rdb, []string{balanceKey(id)}, amount).Int64()
	if err != nil {
		return fmt.Errorf("credit script failed: %w", err)
	}
	if result < 0 {
		return fmt.Errorf("%w: credit %d", domain.ErrBalanceOverflow, amount)
	}
	return nil
}

func (l *Ledger) CreditOnce(ctx context.Context, marker string, id domain.Identity, amount int64) (bool, error) {
	if amount < 1 {
		return false, fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	applied, err := creditOnceScript.Run(ctx, l.rdb, []string{grantKey(marker), balanceKey(id)}, amount, string(id)).Int64()
	if err != nil {
		return false, fmt.Errorf("credit once script failed: %w", err)
	}
	if applied < 0 {
		return false, fmt.Errorf("%w: credit %d", domain.ErrBalanceOverflow, amount)
	}
	return applied == 1, nil
}
