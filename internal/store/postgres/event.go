package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Append(ctx context.Context, e *domain.Event) (int64, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return 0, fmt.Errorf("eventRepo.Append: marshal payload: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO events (event_type, entity_type, entity_id, producer_id, payload, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 RETURNING id`,
		e.EventType, e.EntityType, e.EntityID, e.ProducerID, payload, e.UserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("eventRepo.Append: %w", err)
	}

	return id, nil
}

func (r *EventRepo) AppendBatch(ctx context.Context, events []*domain.Event) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.AppendBatch: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("eventRepo.AppendBatch: marshal payload: %w", err)
		}

		var id int64
		err = tx.QueryRow(ctx,
			`INSERT INTO events (event_type, entity_type, entity_id, producer_id, payload, user_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 RETURNING id`,
			e.EventType, e.EntityType, e.EntityID, e.ProducerID, payload, e.UserID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("eventRepo.AppendBatch: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("eventRepo.AppendBatch: commit: %w", err)
	}

	return ids, nil
}

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_type, entity_type, entity_id, producer_id, payload, user_id, created_at
		 FROM events
		 ORDER BY id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("eventRepo.ListRecent: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventRepo.ListRecent: %w", err)
	}

	return events, nil
}

func (r *EventRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM events WHERE created_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("eventRepo.CountSince: %w", err)
	}
	return count, nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var payload []byte

	err := row.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &e.ProducerID, &payload, &e.UserID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	return &e, nil
}
