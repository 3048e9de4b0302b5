package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/metrics"
)

type StatsOutput struct {
	Body struct {
		RecentEvents     int64 `json:"recent_events" doc:"Events appended in the last 24h"`
		ActiveInsights   int64 `json:"active_insights"`
		SuggestedActions int64 `json:"suggested_actions"`
		UptimeSeconds    int64 `json:"uptime_seconds"`
	}
}

type DashboardOutput struct {
	Body *metrics.Dashboard
}

func RegisterStatsRoutes(api huma.API, events EventService, engine InsightEngine, workflow ActionWorkflow, collector *metrics.Collector, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Headline activity counters",
		Tags:        []string{"Stats"},
	}, func(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceStats, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		out := &StatsOutput{}

		recent, err := events.CountSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count events", err)
		}
		out.Body.RecentEvents = recent

		active, err := engine.CountActive(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count insights", err)
		}
		out.Body.ActiveInsights = active

		suggested, err := workflow.List(ctx, domain.ActionFilter{Status: domain.ActionStatusSuggested})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count actions", err)
		}
		out.Body.SuggestedActions = int64(len(suggested))

		out.Body.UptimeSeconds = collector.UsageStats().UptimeSeconds
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "metrics-dashboard",
		Method:      http.MethodGet,
		Path:        "/stats/dashboard",
		Summary:     "Operator metrics dashboard",
		Tags:        []string{"Stats"},
	}, func(ctx context.Context, _ *struct{}) (*DashboardOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceStats, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		return &DashboardOutput{Body: collector.MetricsDashboard()}, nil
	})
}
