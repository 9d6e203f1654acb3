package eventpublisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/worldnovel/internal/domain"
)

// EventPublisher implements domain.EventPublisher by composing the live feed
// and the optional external event bus.
type EventPublisher struct {
	feed domain.EventPublisher
	bus  domain.EventPublisher
}

var _ domain.EventPublisher = (*EventPublisher)(nil)

// New composes the publishers. Either one may be nil.
func New(feed, bus domain.EventPublisher) *EventPublisher {
	return &EventPublisher{feed: feed, bus: bus}
}

// Publish delivers to every configured target. A failing target does not keep the
// event from the others.
func (ep *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	if ep.feed != nil {
		if err := ep.feed.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publish to feed: %w", err))
		}
	}
	if ep.bus != nil {
		if err := ep.bus.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publish to event bus: %w", err))
		}
	}
	return errors.Join(errs...)
}
