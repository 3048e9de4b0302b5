package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/cocoflow/insight-engine/internal/api/v1"
	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

// ---------------------------------------------------------------------------
// TestAssistantContext
// ---------------------------------------------------------------------------

func TestAssistantContext(t *testing.T) {
	t.Parallel()

	t.Run("flag_disabled_denied", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		builder := &mockBuilder{
			buildContextFunc: func(_ context.Context) (*assistant.AssistantContext, error) {
				t.Fatal("builder should not be reached")
				return nil, nil
			},
		}
		v1.RegisterAssistantRoutes(api, builder, newGuard(t))

		resp := api.GetCtx(userCtx(5, "manager"), "/assistant/context")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		guard := newGuard(t)
		require.True(t, guard.Flags.SetGlobal(context.Background(), gate.FlagAIAssistant, true))

		builder := &mockBuilder{
			buildContextFunc: func(_ context.Context) (*assistant.AssistantContext, error) {
				return &assistant.AssistantContext{
					Events: []*domain.Event{
						{ID: 1, EventType: "stock.adjusted", EntityType: "stock_item", EntityID: 7},
					},
					Insights: []*domain.Insight{
						{InsightType: "critical_stock", Severity: domain.SeverityCritical, Status: domain.InsightStatusActive},
					},
					Summary:     &domain.SystemSummary{LowStockItems: 3},
					GeneratedAt: time.Now(),
				}, nil
			},
		}
		v1.RegisterAssistantRoutes(api, builder, guard)

		resp := api.GetCtx(userCtx(5, "manager"), "/assistant/context")

		require.Equal(t, http.StatusOK, resp.Code)

		var body assistant.AssistantContext
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Events, 1)
		assert.Len(t, body.Insights, 1)
		require.NotNil(t, body.Summary)
		assert.Equal(t, int64(3), body.Summary.LowStockItems)
	})

	t.Run("per_user_grant", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		guard := newGuard(t)
		require.True(t, guard.Flags.Grant(context.Background(), gate.FlagAIAssistant, 5))

		builder := &mockBuilder{
			buildContextFunc: func(_ context.Context) (*assistant.AssistantContext, error) {
				return &assistant.AssistantContext{GeneratedAt: time.Now()}, nil
			},
		}
		v1.RegisterAssistantRoutes(api, builder, guard)

		granted := api.GetCtx(userCtx(5, "manager"), "/assistant/context")
		denied := api.GetCtx(userCtx(6, "manager"), "/assistant/context")

		assert.Equal(t, http.StatusOK, granted.Code)
		assert.Equal(t, http.StatusForbidden, denied.Code)
	})
}

// ---------------------------------------------------------------------------
// TestSystemSummary
// ---------------------------------------------------------------------------

func TestSystemSummary(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		builder := &mockBuilder{
			summaryFunc: func(_ context.Context) (*domain.SystemSummary, error) {
				return &domain.SystemSummary{
					StockItems:       120,
					LowStockItems:    4,
					OpenPayables:     2,
					PendingPurchases: 1,
				}, nil
			},
		}
		v1.RegisterAssistantRoutes(api, builder, newGuard(t))

		resp := api.GetCtx(userCtx(5, "viewer"), "/assistant/summary")

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.SystemSummary
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(120), body.StockItems)
		assert.Equal(t, int64(4), body.LowStockItems)
	})
}
