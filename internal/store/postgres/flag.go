package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type FlagRepo struct {
	pool *pgxpool.Pool
}

func NewFlagRepo(pool *pgxpool.Pool) *FlagRepo {
	return &FlagRepo{pool: pool}
}

func (r *FlagRepo) GetByName(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT name, enabled_globally, rollout_percentage, allowed_roles, allowed_user_ids
		 FROM feature_flags WHERE name = $1`,
		name,
	)

	f, err := scanFlag(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("flagRepo.GetByName: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("flagRepo.GetByName: %w", err)
	}

	return f, nil
}

func (r *FlagRepo) Save(ctx context.Context, f *domain.FeatureFlag) error {
	roles, err := json.Marshal(f.AllowedRoles)
	if err != nil {
		return fmt.Errorf("flagRepo.Save: marshal roles: %w", err)
	}
	userIDs, err := json.Marshal(f.AllowedUserIDs)
	if err != nil {
		return fmt.Errorf("flagRepo.Save: marshal user ids: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO feature_flags (name, enabled_globally, rollout_percentage, allowed_roles, allowed_user_ids, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (name) DO UPDATE SET
		   enabled_globally = EXCLUDED.enabled_globally,
		   rollout_percentage = EXCLUDED.rollout_percentage,
		   allowed_roles = EXCLUDED.allowed_roles,
		   allowed_user_ids = EXCLUDED.allowed_user_ids,
		   updated_at = now()`,
		f.Name, f.EnabledGlobally, f.RolloutPercentage, roles, userIDs,
	)
	if err != nil {
		return fmt.Errorf("flagRepo.Save: %w", err)
	}

	return nil
}

func (r *FlagRepo) List(ctx context.Context) ([]*domain.FeatureFlag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, enabled_globally, rollout_percentage, allowed_roles, allowed_user_ids
		 FROM feature_flags ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("flagRepo.List: %w", err)
	}
	defer rows.Close()

	var flags []*domain.FeatureFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("flagRepo.List: %w", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flagRepo.List: %w", err)
	}

	return flags, nil
}

func scanFlag(row pgx.Row) (*domain.FeatureFlag, error) {
	var f domain.FeatureFlag
	var roles, userIDs []byte

	err := row.Scan(&f.Name, &f.EnabledGlobally, &f.RolloutPercentage, &roles, &userIDs)
	if err != nil {
		return nil, err
	}

	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &f.AllowedRoles); err != nil {
			return nil, fmt.Errorf("unmarshal roles: %w", err)
		}
	}
	if len(userIDs) > 0 {
		if err := json.Unmarshal(userIDs, &f.AllowedUserIDs); err != nil {
			return nil, fmt.Errorf("unmarshal user ids: %w", err)
		}
	}
	if f.AllowedRoles == nil {
		f.AllowedRoles = map[string]bool{}
	}
	if f.AllowedUserIDs == nil {
		f.AllowedUserIDs = map[int64]bool{}
	}

	return &f, nil
}
