package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// ---------------------------------------------------------------------------
// Feature flags
// ---------------------------------------------------------------------------

type FlagRepo struct {
	mu    sync.Mutex
	flags map[string]*domain.FeatureFlag
}

func NewFlagRepo() *FlagRepo {
	return &FlagRepo{flags: make(map[string]*domain.FeatureFlag)}
}

func (r *FlagRepo) GetByName(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flags[name]
	if !ok {
		return nil, fmt.Errorf("flagRepo.GetByName: %w", domain.ErrNotFound)
	}
	return f.Clone(), nil
}

func (r *FlagRepo) Save(ctx context.Context, f *domain.FeatureFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flags[f.Name] = f.Clone()
	return nil
}

func (r *FlagRepo) List(ctx context.Context) ([]*domain.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.FeatureFlag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

type AuditRepo struct {
	mu         sync.Mutex
	entries    []*domain.AuditEntry
	failWrites bool
}

func NewAuditRepo() *AuditRepo { return &AuditRepo{} }

// FailWrites makes subsequent writes fail with ErrStorage, for tests.
func (r *AuditRepo) FailWrites(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = fail
}

func (r *AuditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return fmt.Errorf("auditRepo.Record: %w", domain.ErrStorage)
	}

	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.AuditEntry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *AuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID != userID {
			continue
		}
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Notification config
// ---------------------------------------------------------------------------

type NotificationConfigRepo struct {
	mu  sync.Mutex
	cfg *domain.NotificationConfig
}

func NewNotificationConfigRepo() *NotificationConfigRepo {
	return &NotificationConfigRepo{}
}

func (r *NotificationConfigRepo) Get(ctx context.Context) (*domain.NotificationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg == nil {
		return domain.DefaultNotificationConfig(), nil
	}
	cp := *r.cfg
	return &cp, nil
}

func (r *NotificationConfigRepo) Save(ctx context.Context, cfg *domain.NotificationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *cfg
	r.cfg = &cp
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
		}
	}

	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	cp := *u
	r.users[cp.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("userRepo.GetByEmail: %w", domain.ErrNotFound)
}
