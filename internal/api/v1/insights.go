package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type ListInsightsInput struct {
	Status   string `query:"status" enum:"active,dismissed,resolved" required:"false" doc:"Filter by status"`
	Severity string `query:"severity" enum:"info,warning,critical" required:"false" doc:"Filter by severity"`
	Limit    int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of insights"`
}

type ListInsightsOutput struct {
	Body []*domain.Insight
}

type InsightIDInput struct {
	ID uuid.UUID `path:"id" doc:"Insight ID"`
}

type InsightOutput struct {
	Body *domain.Insight
}

type RunChecksOutput struct {
	Body domain.CheckResult
}

func RegisterInsightRoutes(api huma.API, engine InsightEngine, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "list-insights",
		Method:      http.MethodGet,
		Path:        "/insights",
		Summary:     "List insights",
		Tags:        []string{"Insights"},
	}, func(ctx context.Context, input *ListInsightsInput) (*ListInsightsOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceInsight, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		insights, err := engine.List(ctx, domain.InsightFilter{
			Status:   domain.InsightStatus(input.Status),
			Severity: domain.InsightSeverity(input.Severity),
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list insights", err)
		}

		return &ListInsightsOutput{Body: insights}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-insight",
		Method:      http.MethodPost,
		Path:        "/insights/{id}/dismiss",
		Summary:     "Dismiss an active insight",
		Tags:        []string{"Insights"},
	}, func(ctx context.Context, input *InsightIDInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceInsight, gate.ActionDismiss)
		if err != nil {
			return nil, err
		}

		ok, err := engine.Dismiss(ctx, input.ID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("insight not found")
			}
			return nil, huma.Error500InternalServerError("failed to dismiss insight", err)
		}
		if !ok {
			return nil, huma.Error409Conflict("insight is not active")
		}

		guard.Auditor.Record(ctx, userID, role, gate.ActionDismiss, gate.ResourceInsight, true, map[string]any{"insight_id": input.ID.String()})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-insight",
		Method:      http.MethodPost,
		Path:        "/insights/{id}/resolve",
		Summary:     "Resolve an active insight",
		Tags:        []string{"Insights"},
	}, func(ctx context.Context, input *InsightIDInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceInsight, gate.ActionResolve)
		if err != nil {
			return nil, err
		}

		ok, err := engine.Resolve(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("insight not found")
			}
			return nil, huma.Error500InternalServerError("failed to resolve insight", err)
		}
		if !ok {
			return nil, huma.Error409Conflict("insight is not active")
		}

		guard.Auditor.Record(ctx, userID, role, gate.ActionResolve, gate.ResourceInsight, true, map[string]any{"insight_id": input.ID.String()})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-insight-checks",
		Method:      http.MethodPost,
		Path:        "/insights/checks/run",
		Summary:     "Run all monitoring rules now",
		Tags:        []string{"Insights"},
	}, func(ctx context.Context, _ *struct{}) (*RunChecksOutput, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceInsight, gate.ActionRun)
		if err != nil {
			return nil, err
		}

		result := engine.RunAllChecks(ctx)

		guard.Auditor.Record(ctx, userID, role, gate.ActionRun, gate.ResourceInsight, true, map[string]any{
			"created": result.Created,
			"skipped": result.Skipped,
			"errors":  result.Errors,
		})
		return &RunChecksOutput{Body: result}, nil
	})
}
