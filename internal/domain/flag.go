package domain

import "context"

// FeatureFlag controls gradual rollout of a capability. A flag is enabled for
// a user when any of the following holds: global enable, the user's role is in
// the allowed set, the user is in the explicit allow-list, or the user's
// stable rollout bucket falls under RolloutPercentage.
type FeatureFlag struct {
	Name              string          `json:"name"`
	EnabledGlobally   bool            `json:"enabled_globally"`
	RolloutPercentage int             `json:"rollout_percentage"`
	AllowedRoles      map[string]bool `json:"allowed_roles,omitempty"`
	AllowedUserIDs    map[int64]bool  `json:"allowed_user_ids,omitempty"`
}

// Clone returns a deep copy so cached flags can be mutated safely.
func (f *FeatureFlag) Clone() *FeatureFlag {
	c := *f
	c.AllowedRoles = make(map[string]bool, len(f.AllowedRoles))
	for k, v := range f.AllowedRoles {
		c.AllowedRoles[k] = v
	}
	c.AllowedUserIDs = make(map[int64]bool, len(f.AllowedUserIDs))
	for k, v := range f.AllowedUserIDs {
		c.AllowedUserIDs[k] = v
	}
	return &c
}

type FeatureFlagRepository interface {
	GetByName(ctx context.Context, name string) (*FeatureFlag, error)
	Save(ctx context.Context, f *FeatureFlag) error
	List(ctx context.Context) ([]*FeatureFlag, error)
}
