package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/notify"
)

type NotificationConfigOutput struct {
	Body *domain.NotificationConfig
}

type UpdateNotificationConfigInput struct {
	Body struct {
		CriticalAlertsEnabled *bool    `json:"critical_alerts_enabled,omitempty" doc:"Enable critical alerts"`
		DailySummaryEnabled   *bool    `json:"daily_summary_enabled,omitempty" doc:"Enable the daily summary"`
		DailySummaryTime      *string  `json:"daily_summary_time,omitempty" doc:"Daily summary time, HH:MM"`
		WeeklyReportEnabled   *bool    `json:"weekly_report_enabled,omitempty" doc:"Enable the weekly report"`
		WeeklyReportDay       *int     `json:"weekly_report_day,omitempty" minimum:"0" maximum:"6" doc:"Weekly report weekday, 0=Sunday"`
		RecipientRoles        []string `json:"recipient_roles,omitempty" doc:"Roles receiving notifications"`
		RecipientUserIDs      []int64  `json:"recipient_user_ids,omitempty" doc:"Users receiving notifications"`
	}
}

func RegisterNotificationRoutes(api huma.API, notifier Notifier, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "get-notification-config",
		Method:      http.MethodGet,
		Path:        "/notifications/config",
		Summary:     "Read the notification configuration",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, _ *struct{}) (*NotificationConfigOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceNotificationConfig, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		cfg, err := notifier.GetConfig(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read notification config", err)
		}

		return &NotificationConfigOutput{Body: cfg}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-notification-config",
		Method:      http.MethodPatch,
		Path:        "/notifications/config",
		Summary:     "Merge changes into the notification configuration",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, input *UpdateNotificationConfigInput) (*NotificationConfigOutput, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceNotificationConfig, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}

		patch := notify.ConfigPatch{
			CriticalAlertsEnabled: input.Body.CriticalAlertsEnabled,
			DailySummaryEnabled:   input.Body.DailySummaryEnabled,
			DailySummaryTime:      input.Body.DailySummaryTime,
			WeeklyReportEnabled:   input.Body.WeeklyReportEnabled,
			RecipientRoles:        input.Body.RecipientRoles,
			RecipientUserIDs:      input.Body.RecipientUserIDs,
		}
		if input.Body.WeeklyReportDay != nil {
			day := time.Weekday(*input.Body.WeeklyReportDay)
			patch.WeeklyReportDay = &day
		}

		cfg, err := notifier.SaveConfig(ctx, patch)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest("invalid notification config")
			}
			return nil, huma.Error500InternalServerError("failed to save notification config", err)
		}

		guard.Auditor.Record(ctx, userID, role, gate.ActionUpdate, gate.ResourceNotificationConfig, true, nil)
		return &NotificationConfigOutput{Body: cfg}, nil
	})
}
