package gate

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// Well-known flag names consulted by the API layer. Creating them is up to
// the operator (or dev-mode seeding); unknown flags evaluate to off.
const (
	FlagAIActions   = "ai_actions"
	FlagAIAssistant = "ai_assistant"
)

// FlagService evaluates and administers feature flags. Reads hit an in-memory
// cache; writes go through the repository and update the cache, so changes are
// visible to subsequent reads without a restart.
type FlagService struct {
	repo domain.FeatureFlagRepository
	log  zerolog.Logger

	mu    sync.RWMutex
	flags map[string]*domain.FeatureFlag
}

func NewFlagService(ctx context.Context, repo domain.FeatureFlagRepository, log zerolog.Logger) (*FlagService, error) {
	s := &FlagService{
		repo:  repo,
		log:   log.With().Str("component", "flags").Logger(),
		flags: make(map[string]*domain.FeatureFlag),
	}

	stored, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("gate.NewFlagService: load flags: %w", err)
	}
	for _, f := range stored {
		s.flags[f.Name] = f.Clone()
	}

	return s, nil
}

// IsEnabled reports whether the flag is on for the given user. A flag is on
// when globally enabled, the role is in its allowed set, the user is
// explicitly allow-listed, or the user's stable rollout bucket falls under the
// rollout percentage. Unknown flags are off.
func (s *FlagService) IsEnabled(name string, userID int64, role Role) bool {
	s.mu.RLock()
	f, ok := s.flags[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	if f.EnabledGlobally {
		return true
	}
	if f.AllowedRoles[string(role)] {
		return true
	}
	if f.AllowedUserIDs[userID] {
		return true
	}
	return rolloutBucket(name, userID) < f.RolloutPercentage
}

// rolloutBucket assigns userID to a stable bucket in [0, 100). The flag name
// participates in the hash so buckets are uncorrelated across flags.
func rolloutBucket(flagName string, userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagName))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % 100)
}

// Grant adds userID to the flag's explicit allow-list, creating a disabled
// flag record when the name is unknown.
func (s *FlagService) Grant(ctx context.Context, name string, userID int64) bool {
	return s.mutate(ctx, name, true, func(f *domain.FeatureFlag) {
		f.AllowedUserIDs[userID] = true
	})
}

// Revoke removes userID from the allow-list. Revoking a user who was never
// granted is a successful no-op.
func (s *FlagService) Revoke(ctx context.Context, name string, userID int64) bool {
	return s.mutate(ctx, name, false, func(f *domain.FeatureFlag) {
		delete(f.AllowedUserIDs, userID)
	})
}

// AddRole adds a role to the flag's allowed role set.
func (s *FlagService) AddRole(ctx context.Context, name string, role Role) bool {
	return s.mutate(ctx, name, true, func(f *domain.FeatureFlag) {
		f.AllowedRoles[string(role)] = true
	})
}

// SetGlobal turns the flag on or off for everyone.
func (s *FlagService) SetGlobal(ctx context.Context, name string, enabled bool) bool {
	return s.mutate(ctx, name, true, func(f *domain.FeatureFlag) {
		f.EnabledGlobally = enabled
	})
}

// SetRolloutPercentage updates the flag's rollout percentage, clamped to [0, 100].
func (s *FlagService) SetRolloutPercentage(ctx context.Context, name string, pct int) bool {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return s.mutate(ctx, name, true, func(f *domain.FeatureFlag) {
		f.RolloutPercentage = pct
	})
}

// Get returns a copy of the flag, or nil when unknown.
func (s *FlagService) Get(name string) *domain.FeatureFlag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flags[name]
	if !ok {
		return nil
	}
	return f.Clone()
}

// List returns copies of all flags.
func (s *FlagService) List() []*domain.FeatureFlag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FeatureFlag, 0, len(s.flags))
	for _, f := range s.flags {
		out = append(out, f.Clone())
	}
	return out
}

// Count reports how many flags are registered.
func (s *FlagService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flags)
}

// mutate applies fn to the (possibly newly created) flag under the write lock
// and persists the result. The cache is only updated when persistence
// succeeds, so reads never observe state the store rejected.
func (s *FlagService) mutate(ctx context.Context, name string, createMissing bool, fn func(*domain.FeatureFlag)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flags[name]
	if !ok {
		if !createMissing {
			return true // no-op on missing flag
		}
		f = &domain.FeatureFlag{
			Name:           name,
			AllowedRoles:   make(map[string]bool),
			AllowedUserIDs: make(map[int64]bool),
		}
	}

	updated := f.Clone()
	fn(updated)

	if err := s.repo.Save(ctx, updated); err != nil {
		s.log.Error().Err(err).Str("flag", name).Msg("persisting flag change failed")
		return false
	}

	s.flags[name] = updated
	return true
}
