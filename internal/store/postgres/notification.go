package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// NotificationConfigRepo stores the singleton dispatch config in a one-row
// table keyed by a fixed id.
type NotificationConfigRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationConfigRepo(pool *pgxpool.Pool) *NotificationConfigRepo {
	return &NotificationConfigRepo{pool: pool}
}

func (r *NotificationConfigRepo) Get(ctx context.Context) (*domain.NotificationConfig, error) {
	var cfg domain.NotificationConfig
	var weekday int

	err := r.pool.QueryRow(ctx,
		`SELECT critical_alerts_enabled, daily_summary_enabled, daily_summary_time,
		        weekly_report_enabled, weekly_report_day, recipient_roles, recipient_user_ids, updated_at
		 FROM notification_config WHERE id = 1`,
	).Scan(
		&cfg.CriticalAlertsEnabled, &cfg.DailySummaryEnabled, &cfg.DailySummaryTime,
		&cfg.WeeklyReportEnabled, &weekday, &cfg.RecipientRoles, &cfg.RecipientUserIDs, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultNotificationConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("notificationConfigRepo.Get: %w", err)
	}

	cfg.WeeklyReportDay = time.Weekday(weekday)
	return &cfg, nil
}

func (r *NotificationConfigRepo) Save(ctx context.Context, cfg *domain.NotificationConfig) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notification_config (id, critical_alerts_enabled, daily_summary_enabled, daily_summary_time,
		                                  weekly_report_enabled, weekly_report_day, recipient_roles, recipient_user_ids, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
		   critical_alerts_enabled = EXCLUDED.critical_alerts_enabled,
		   daily_summary_enabled = EXCLUDED.daily_summary_enabled,
		   daily_summary_time = EXCLUDED.daily_summary_time,
		   weekly_report_enabled = EXCLUDED.weekly_report_enabled,
		   weekly_report_day = EXCLUDED.weekly_report_day,
		   recipient_roles = EXCLUDED.recipient_roles,
		   recipient_user_ids = EXCLUDED.recipient_user_ids,
		   updated_at = now()`,
		cfg.CriticalAlertsEnabled, cfg.DailySummaryEnabled, cfg.DailySummaryTime,
		cfg.WeeklyReportEnabled, int(cfg.WeeklyReportDay), cfg.RecipientRoles, cfg.RecipientUserIDs,
	)
	if err != nil {
		return fmt.Errorf("notificationConfigRepo.Save: %w", err)
	}

	return nil
}
