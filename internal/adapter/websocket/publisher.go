package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centrifugal/centrifuge"
	"github.com/pscheid92/worldnovel/internal/adapter/metrics"
	"github.com/pscheid92/worldnovel/internal/domain"
)

// Publisher pushes committed events to every connected feed client.
type Publisher struct {
	node    *centrifuge.Node
	metrics *metrics.FeedMetrics
}

var _ domain.EventPublisher = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, m *metrics.FeedMetrics) *Publisher {
	return &Publisher{node: node, metrics: m}
}

func (p *Publisher) Publish(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	if _, err := p.node.Publish(FeedChannel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", FeedChannel, err)
	}

	if p.metrics != nil {
		p.metrics.MessagesPublished.WithLabelValues(string(event.Type)).Inc()
	}
	return nil
}
