package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookAdded     EventType = "book_added"
	EventSentenceAdded EventType = "sentence_added"
	EventVoteCast      EventType = "vote_cast"
	EventPeriodChanged EventType = "period_changed"
)

// Event is published after a mutation has been committed.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Actor      Identity  `json:"actor"`
	Book       int       `json:"book"`
	Index      int       `json:"index,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Text       string    `json:"text,omitempty"`
	Period     Period    `json:"period"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh event ID.
func NewEvent(eventType EventType, actor Identity, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Actor:      actor,
		OccurredAt: at,
	}
}

// EventPublisher publishes domain events to infrastructure.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
