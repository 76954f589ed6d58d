package core

import (
	"context"
	"time"
)

// Event is a domain event published to other systems (search indexers, newsletters..).
type Event struct {
	Type       string      `json:"event_type"`
	Key        string      `json:"-"` // partitioning key, usually the aggregate ID
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// EventPublisher is any service that can publish domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}
