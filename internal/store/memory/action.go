package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type ActionRepo struct {
	mu      sync.Mutex
	actions map[uuid.UUID]*domain.Action
}

func NewActionRepo() *ActionRepo {
	return &ActionRepo{actions: make(map[uuid.UUID]*domain.Action)}
}

func (r *ActionRepo) Create(ctx context.Context, a *domain.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *a
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
		a.ID = stored.ID
	}
	if stored.Status == "" {
		stored.Status = domain.ActionStatusSuggested
		a.Status = stored.Status
	}
	r.actions[stored.ID] = &stored
	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("actionRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *ActionRepo) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Action
	for _, a := range r.actions {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SuggestedAt.After(out[j].SuggestedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *ActionRepo) MarkApproved(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	return r.transition(id, domain.ActionStatusSuggested, domain.ActionStatusApproved, "", &byUserID)
}

func (r *ActionRepo) MarkRejected(ctx context.Context, id uuid.UUID, reason string, byUserID int64) (bool, error) {
	return r.transition(id, domain.ActionStatusSuggested, domain.ActionStatusRejected, reason, &byUserID)
}

func (r *ActionRepo) MarkExecuted(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(id, domain.ActionStatusApproved, domain.ActionStatusExecuted, "", nil)
}

func (r *ActionRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(id, domain.ActionStatusApproved, domain.ActionStatusFailed, reason, nil)
}

// transition applies the status change only when the action currently holds
// the expected status, mirroring the postgres conditional UPDATE.
func (r *ActionRepo) transition(id uuid.UUID, from, to domain.ActionStatus, reason string, by *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actions[id]
	if !ok || a.Status != from {
		return false, nil
	}

	now := time.Now()
	a.Status = to
	a.DecidedAt = &now
	if reason != "" {
		a.StatusReason = reason
	}
	if by != nil {
		a.DecidedBy = by
	}
	return true, nil
}
