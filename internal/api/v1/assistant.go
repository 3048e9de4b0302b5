package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type AssistantContextOutput struct {
	Body *assistant.AssistantContext
}

type SystemSummaryOutput struct {
	Body *domain.SystemSummary
}

func RegisterAssistantRoutes(api huma.API, builder ContextBuilder, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "assistant-context",
		Method:      http.MethodGet,
		Path:        "/assistant/context",
		Summary:     "Bounded business context for the assistant",
		Tags:        []string{"Assistant"},
	}, func(ctx context.Context, _ *struct{}) (*AssistantContextOutput, error) {
		_, _, err := guard.AllowFeature(ctx, gate.ResourceStats, gate.ActionRead, gate.FlagAIAssistant)
		if err != nil {
			return nil, err
		}

		bundle, err := builder.BuildContext(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to build context", err)
		}

		return &AssistantContextOutput{Body: bundle}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "system-summary",
		Method:      http.MethodGet,
		Path:        "/assistant/summary",
		Summary:     "Coarse business-state summary",
		Tags:        []string{"Assistant"},
	}, func(ctx context.Context, _ *struct{}) (*SystemSummaryOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceStats, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		summary, err := builder.GetSystemSummary(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read summary", err)
		}

		return &SystemSummaryOutput{Body: summary}, nil
	})
}
