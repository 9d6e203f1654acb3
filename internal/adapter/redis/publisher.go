package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Publisher fans domain events out on a Redis pub/sub channel.
type Publisher struct {
	rdb goredis.Cmdable
}

var _ domain.EventPublisher = (*Publisher)(nil)

func NewPublisher(rdb goredis.Cmdable) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
