// Package event implements the append-only domain event store. Appends are
// durable writes; rule checks pull events rather than being pushed, keeping
// the store decoupled from the insight engine.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// Publisher broadcasts appended events to live subscribers (the websocket
// feed). A nil publisher disables broadcasting.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// FeedChannel is the pub/sub channel carrying appended events.
const FeedChannel = "events:feed"

// publishTimeout bounds the broadcast so a slow broker never delays appends.
const publishTimeout = 2 * time.Second

// Store validates and appends domain events.
type Store struct {
	repo      domain.EventRepository
	publisher Publisher
	log       zerolog.Logger
}

func NewStore(repo domain.EventRepository, publisher Publisher, log zerolog.Logger) *Store {
	return &Store{
		repo:      repo,
		publisher: publisher,
		log:       log.With().Str("component", "event_store").Logger(),
	}
}

// Emit validates and appends a single event, returning its monotonic ID.
func (s *Store) Emit(ctx context.Context, e *domain.Event) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("event.Emit: %w", err)
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	id, err := s.repo.Append(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("event.Emit: %w", err)
	}
	e.ID = id

	s.broadcast(e)
	return id, nil
}

// EmitBatch appends a batch of events all-or-nothing: if any event is invalid
// or the storage write fails, no event from the batch is stored.
func (s *Store) EmitBatch(ctx context.Context, events []*domain.Event) ([]int64, error) {
	now := time.Now()
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("event.EmitBatch: event %d: %w", i, err)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}

	ids, err := s.repo.AppendBatch(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("event.EmitBatch: %w", err)
	}

	for i, e := range events {
		e.ID = ids[i]
		s.broadcast(e)
	}
	return ids, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	events, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("event.RecentEvents: %w", err)
	}
	return events, nil
}

// CountSince reports how many events arrived at or after the given time.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("event.CountSince: %w", err)
	}
	return n, nil
}

// broadcast publishes the stored event to the live feed. Failures are logged,
// never surfaced: the append already succeeded.
func (s *Store) broadcast(e *domain.Event) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		s.log.Warn().Err(err).Int64("event_id", e.ID).Msg("marshal event for feed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, FeedChannel, payload); err != nil {
		s.log.Warn().Err(err).Int64("event_id", e.ID).Msg("publish event to feed")
	}
}
