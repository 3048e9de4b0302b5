package domain

import (
	"context"
	"time"
)

// Event is an immutable record of a business mutation. Events are append-only:
// once stored they are never updated or deleted. IDs are assigned by the store
// and are monotonically increasing.
type Event struct {
	ID         int64          `json:"id"`
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ProducerID *int64         `json:"producer_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	UserID     *int64         `json:"user_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks the required event fields.
func (e *Event) Validate() error {
	if e.EventType == "" || e.EntityType == "" || e.EntityID == 0 {
		return ErrValidation
	}
	return nil
}

type EventRepository interface {
	Append(ctx context.Context, e *Event) (int64, error)
	// AppendBatch is all-or-nothing: either every event in the batch is
	// stored or none is.
	AppendBatch(ctx context.Context, events []*Event) ([]int64, error)
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Event, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
