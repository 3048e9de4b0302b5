// Package memory holds in-memory repository implementations. They mirror the
// postgres repositories' semantics (conditional transitions, fingerprint
// uniqueness, batch atomicity) and back unit tests and dev mode. Not intended
// for production use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type EventRepo struct {
	mu     sync.Mutex
	nextID int64
	events []*domain.Event

	failWrites bool
}

func NewEventRepo() *EventRepo {
	return &EventRepo{nextID: 1}
}

// FailWrites makes subsequent appends fail with ErrStorage, for tests.
func (r *EventRepo) FailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

func (r *EventRepo) Append(ctx context.Context, e *domain.Event) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return 0, fmt.Errorf("eventRepo.Append: %w", domain.ErrStorage)
	}

	return r.append(e), nil
}

func (r *EventRepo) AppendBatch(ctx context.Context, events []*domain.Event) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return nil, fmt.Errorf("eventRepo.AppendBatch: %w", domain.ErrStorage)
	}

	// All-or-nothing: nothing is stored until the whole batch is accepted.
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = r.append(e)
	}
	return ids, nil
}

// append assigns the next monotonic ID; callers hold the lock.
func (r *EventRepo) append(e *domain.Event) int64 {
	stored := *e
	stored.ID = r.nextID
	r.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.events = append(r.events, &stored)
	return stored.ID
}

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Event, len(r.events))
	copy(out, r.events)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *EventRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, e := range r.events {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
