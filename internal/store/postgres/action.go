package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

const actionColumns = `id, insight_id, conversation_id, action_type, title, description,
	target_module, target_mutation, payload, status, status_reason,
	suggested_at, decided_at, decided_by, created_by`

func (r *ActionRepo) Create(ctx context.Context, a *domain.Action) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: marshal payload: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO ai_actions (id, insight_id, conversation_id, action_type, title, description,
		                         target_module, target_mutation, payload, status, status_reason,
		                         suggested_at, decided_at, decided_by, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.InsightID, a.ConversationID, a.ActionType, a.Title, a.Description,
		a.TargetModule, a.TargetMutation, payload, a.Status, a.StatusReason,
		a.SuggestedAt, a.DecidedAt, a.DecidedBy, a.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: %w", err)
	}

	return nil
}

func (r *ActionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM ai_actions WHERE id = $1`, id,
	)

	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("actionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("actionRepo.GetByID: %w", err)
	}

	return a, nil
}

func (r *ActionRepo) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM ai_actions`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " WHERE status = $1"
	}

	query += " ORDER BY suggested_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("actionRepo.List: %w", err)
	}
	defer rows.Close()

	var actions []*domain.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("actionRepo.List: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("actionRepo.List: %w", err)
	}

	return actions, nil
}

func (r *ActionRepo) MarkApproved(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	return r.transition(ctx, "actionRepo.MarkApproved",
		`UPDATE ai_actions SET status = 'approved', decided_at = now(), decided_by = $1
		 WHERE id = $2 AND status = 'suggested'`,
		byUserID, id)
}

func (r *ActionRepo) MarkRejected(ctx context.Context, id uuid.UUID, reason string, byUserID int64) (bool, error) {
	return r.transition(ctx, "actionRepo.MarkRejected",
		`UPDATE ai_actions SET status = 'rejected', status_reason = $1, decided_at = now(), decided_by = $2
		 WHERE id = $3 AND status = 'suggested'`,
		reason, byUserID, id)
}

func (r *ActionRepo) MarkExecuted(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, "actionRepo.MarkExecuted",
		`UPDATE ai_actions SET status = 'executed', decided_at = now()
		 WHERE id = $1 AND status = 'approved'`,
		id)
}

func (r *ActionRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx, "actionRepo.MarkFailed",
		`UPDATE ai_actions SET status = 'failed', status_reason = $1, decided_at = now()
		 WHERE id = $2 AND status = 'approved'`,
		reason, id)
}

func (r *ActionRepo) transition(ctx context.Context, op, query string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAction(row pgx.Row) (*domain.Action, error) {
	var a domain.Action
	var payload []byte

	err := row.Scan(
		&a.ID, &a.InsightID, &a.ConversationID, &a.ActionType, &a.Title, &a.Description,
		&a.TargetModule, &a.TargetMutation, &payload, &a.Status, &a.StatusReason,
		&a.SuggestedAt, &a.DecidedAt, &a.DecidedBy, &a.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &a.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	return &a, nil
}
