package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pscheid92/worldnovel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishesJSONEvent(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, eventsChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := domain.NewEvent(domain.EventVoteCast, "0xalice", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	event.Book = 0
	event.Index = 3
	event.Amount = 69
	event.Period = domain.PeriodVoting

	require.NoError(t, NewPublisher(client).Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
