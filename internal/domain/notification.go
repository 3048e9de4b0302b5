package domain

import (
	"context"
	"time"
)

// NotificationConfig is the singleton dispatch configuration, mutable by
// admins at runtime.
type NotificationConfig struct {
	CriticalAlertsEnabled bool         `json:"critical_alerts_enabled"`
	DailySummaryEnabled   bool         `json:"daily_summary_enabled"`
	DailySummaryTime      string       `json:"daily_summary_time"` // "HH:MM", local time
	WeeklyReportEnabled   bool         `json:"weekly_report_enabled"`
	WeeklyReportDay       time.Weekday `json:"weekly_report_day"`
	RecipientRoles        []string     `json:"recipient_roles,omitempty"`
	RecipientUserIDs      []int64      `json:"recipient_user_ids,omitempty"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// DefaultNotificationConfig is used when no config row exists yet.
func DefaultNotificationConfig() *NotificationConfig {
	return &NotificationConfig{
		CriticalAlertsEnabled: true,
		DailySummaryEnabled:   true,
		DailySummaryTime:      "08:00",
		WeeklyReportEnabled:   false,
		WeeklyReportDay:       time.Monday,
		RecipientRoles:        []string{"admin", "manager"},
	}
}

type NotificationConfigRepository interface {
	Get(ctx context.Context) (*NotificationConfig, error)
	Save(ctx context.Context, cfg *NotificationConfig) error
}
