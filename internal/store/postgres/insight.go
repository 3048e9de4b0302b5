package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// uniqueViolation is the postgres error code raised by the partial unique
// index on insights(fingerprint) WHERE status = 'active'.
const uniqueViolation = "23505"

type InsightRepo struct {
	pool *pgxpool.Pool
}

func NewInsightRepo(pool *pgxpool.Pool) *InsightRepo {
	return &InsightRepo{pool: pool}
}

const insightColumns = `id, insight_type, severity, title, summary, details, evidence_ids,
	module, entity_type, entity_id, fingerprint, status, generated_at,
	dismissed_at, dismissed_by, resolved_at, expires_at`

func (r *InsightRepo) Create(ctx context.Context, ins *domain.Insight) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("insightRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// Retire an expired active row carrying the same fingerprint so the
	// partial unique index does not pin a stale finding forever.
	_, err = tx.Exec(ctx,
		`UPDATE insights SET status = 'resolved', resolved_at = now()
		 WHERE fingerprint = $1 AND status = 'active'
		   AND expires_at IS NOT NULL AND expires_at <= now()`,
		ins.Fingerprint(),
	)
	if err != nil {
		return fmt.Errorf("insightRepo.Create: retire expired: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO insights (id, insight_type, severity, title, summary, details, evidence_ids,
		                       module, entity_type, entity_id, fingerprint, status, generated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ins.ID, ins.InsightType, ins.Severity, ins.Title, ins.Summary, ins.Details, ins.EvidenceIDs,
		ins.Module, ins.EntityType, ins.EntityID, ins.Fingerprint(), ins.Status, ins.GeneratedAt, ins.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insightRepo.Create: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insightRepo.Create: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("insightRepo.Create: commit: %w", err)
	}

	return nil
}

func (r *InsightRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Insight, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id = $1`, id,
	)

	ins, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insightRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insightRepo.GetByID: %w", err)
	}

	return ins, nil
}

func (r *InsightRepo) GetActiveByFingerprint(ctx context.Context, fp string) (*domain.Insight, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+insightColumns+`
		 FROM insights
		 WHERE fingerprint = $1 AND status = 'active'
		   AND (expires_at IS NULL OR expires_at > now())`,
		fp,
	)

	ins, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insightRepo.GetActiveByFingerprint: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insightRepo.GetActiveByFingerprint: %w", err)
	}

	return ins, nil
}

func (r *InsightRepo) UpdateEvidence(ctx context.Context, id uuid.UUID, details string, evidenceIDs []int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE insights SET details = $1, evidence_ids = $2, generated_at = now()
		 WHERE id = $3 AND status = 'active'`,
		details, evidenceIDs, id,
	)
	if err != nil {
		return fmt.Errorf("insightRepo.UpdateEvidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insightRepo.UpdateEvidence: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *InsightRepo) List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
		if filter.Status == domain.InsightStatusActive {
			query += " AND (expires_at IS NULL OR expires_at > now())"
		}
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}

	query += " ORDER BY generated_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insightRepo.List: %w", err)
	}
	defer rows.Close()

	var insights []*domain.Insight
	for rows.Next() {
		ins, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("insightRepo.List: %w", err)
		}
		insights = append(insights, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insightRepo.List: %w", err)
	}

	return insights, nil
}

func (r *InsightRepo) Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE insights SET status = 'dismissed', dismissed_at = now(), dismissed_by = $1
		 WHERE id = $2 AND status = 'active'`,
		byUserID, id,
	)
	if err != nil {
		return false, fmt.Errorf("insightRepo.Dismiss: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *InsightRepo) Resolve(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE insights SET status = 'resolved', resolved_at = now()
		 WHERE id = $1 AND status = 'active'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("insightRepo.Resolve: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *InsightRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM insights
		 WHERE status = 'active' AND (expires_at IS NULL OR expires_at > now())`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("insightRepo.CountActive: %w", err)
	}
	return count, nil
}

func scanInsight(row pgx.Row) (*domain.Insight, error) {
	var ins domain.Insight
	var fingerprint string

	err := row.Scan(
		&ins.ID, &ins.InsightType, &ins.Severity, &ins.Title, &ins.Summary, &ins.Details, &ins.EvidenceIDs,
		&ins.Module, &ins.EntityType, &ins.EntityID, &fingerprint, &ins.Status, &ins.GeneratedAt,
		&ins.DismissedAt, &ins.DismissedBy, &ins.ResolvedAt, &ins.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &ins, nil
}
