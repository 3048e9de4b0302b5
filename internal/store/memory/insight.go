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

type InsightRepo struct {
	mu       sync.Mutex
	insights map[uuid.UUID]*domain.Insight
}

func NewInsightRepo() *InsightRepo {
	return &InsightRepo{insights: make(map[uuid.UUID]*domain.Insight)}
}

func (r *InsightRepo) Create(ctx context.Context, ins *domain.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Retire expired actives carrying the same fingerprint, then enforce
	// uniqueness over the remaining active rows. Mirrors the postgres
	// partial unique index plus its retire-on-create step.
	now := time.Now()
	for _, existing := range r.insights {
		if existing.Status != domain.InsightStatusActive || existing.Fingerprint() != ins.Fingerprint() {
			continue
		}
		if existing.Expired(now) {
			resolvedAt := now
			existing.Status = domain.InsightStatusResolved
			existing.ResolvedAt = &resolvedAt
			continue
		}
		return fmt.Errorf("insightRepo.Create: %w", domain.ErrConflict)
	}

	stored := *ins
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
		ins.ID = stored.ID
	}
	r.insights[stored.ID] = &stored
	return nil
}

func (r *InsightRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ins, ok := r.insights[id]
	if !ok {
		return nil, fmt.Errorf("insightRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *ins
	return &cp, nil
}

func (r *InsightRepo) GetActiveByFingerprint(ctx context.Context, fp string) (*domain.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, ins := range r.insights {
		if ins.Status == domain.InsightStatusActive && !ins.Expired(now) && ins.Fingerprint() == fp {
			cp := *ins
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("insightRepo.GetActiveByFingerprint: %w", domain.ErrNotFound)
}

func (r *InsightRepo) UpdateEvidence(ctx context.Context, id uuid.UUID, details string, evidenceIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ins, ok := r.insights[id]
	if !ok {
		return fmt.Errorf("insightRepo.UpdateEvidence: %w", domain.ErrNotFound)
	}
	ins.Details = details
	ins.EvidenceIDs = append([]int64(nil), evidenceIDs...)
	return nil
}

func (r *InsightRepo) List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var out []*domain.Insight
	for _, ins := range r.insights {
		if filter.Status != "" && ins.Status != filter.Status {
			continue
		}
		// Lazy expiry: expired actives never surface as active.
		if filter.Status == domain.InsightStatusActive && ins.Expired(now) {
			continue
		}
		if filter.Severity != "" && ins.Severity != filter.Severity {
			continue
		}
		cp := *ins
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InsightRepo) Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ins, ok := r.insights[id]
	if !ok || ins.Status != domain.InsightStatusActive {
		return false, nil
	}

	now := time.Now()
	ins.Status = domain.InsightStatusDismissed
	ins.DismissedAt = &now
	ins.DismissedBy = &byUserID
	return true, nil
}

func (r *InsightRepo) Resolve(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ins, ok := r.insights[id]
	if !ok || ins.Status != domain.InsightStatusActive {
		return false, nil
	}

	now := time.Now()
	ins.Status = domain.InsightStatusResolved
	ins.ResolvedAt = &now
	return true, nil
}

func (r *InsightRepo) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var n int64
	for _, ins := range r.insights {
		if ins.Status == domain.InsightStatusActive && !ins.Expired(now) {
			n++
		}
	}
	return n, nil
}
