package redis

import (
	"context"
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// settleScript debits the balance and writes the snapshot in one atomic step.
// KEYS: [1]=balance, [2]=state, [3]=books
// ARGV: [1]=amount, [2]=header, [3..]=book index/JSON pairs
// Returns 1 when settled, -1 when funds are short.
var settleScript = goredis.NewScript(`
local amount = tonumber(ARGV[1])
if amount > 0 then
  local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
  if balance < amount then
    return -1
  end
  redis.call('DECRBY', KEYS[1], amount)
end
redis.call('SET', KEYS[2], ARGV[2])
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[3], ARGV[i], ARGV[i + 1])
end
return 1
`)

// Settlement debits and saves in one script. It serves deployments that keep the
// ledger and the novel state on the same Redis.
type Settlement struct {
	rdb goredis.Cmdable
}

var _ domain.Settlement = (*Settlement)(nil)

func NewSettlement(rdb goredis.Cmdable) *Settlement {
	return &Settlement{rdb: rdb}
}

func (s *Settlement) Settle(ctx context.Context, id domain.Identity, amount int64, snapshot *domain.Snapshot) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	header, books, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	args := append([]any{amount, header}, books...)
	keys := []string{balanceKey(id), stateKey, booksKey}
	result, err := settleScript.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("settle script failed: %w", err)
	}
	if result < 0 {
		return fmt.Errorf("%w: debit %d", domain.ErrInsufficientBalance, amount)
	}
	return nil
}
