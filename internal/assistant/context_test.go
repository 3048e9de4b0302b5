package assistant_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/store/memory"
)

func newTestBuilder(t *testing.T) (*assistant.Builder, *memory.EventRepo, *memory.InsightRepo, *memory.StateRepo) {
	t.Helper()

	events := memory.NewEventRepo()
	insights := memory.NewInsightRepo()
	state := memory.NewStateRepo()
	b := assistant.NewBuilder(events, insights, state, zerolog.Nop())
	return b, events, insights, state
}

func TestBuildContextBundlesAllSections(t *testing.T) {
	t.Parallel()

	b, events, insights, state := newTestBuilder(t)
	ctx := context.Background()

	_, err := events.Append(ctx, &domain.Event{
		EventType:  "COCONUT_LOAD_CREATED",
		EntityType: "coconut_load",
		EntityID:   12,
	})
	require.NoError(t, err)

	require.NoError(t, insights.Create(ctx, &domain.Insight{
		InsightType: "critical_stock",
		Severity:    domain.SeverityCritical,
		Title:       "Husked coconuts below minimum",
		EntityType:  "stock_item",
		EntityID:    7,
		Status:      domain.InsightStatusActive,
		GeneratedAt: time.Now(),
	}))

	state.SetStock([]*domain.StockItem{
		{ID: 7, Name: "Husked coconuts", Quantity: 2, MinQuantity: 100},
	}, 40)

	got, err := b.BuildContext(ctx)
	require.NoError(t, err)

	require.Len(t, got.Events, 1)
	assert.Equal(t, "COCONUT_LOAD_CREATED", got.Events[0].EventType)
	require.Len(t, got.Insights, 1)
	require.NotNil(t, got.Summary)
	assert.Equal(t, int64(40), got.Summary.StockItems)
	assert.Equal(t, int64(1), got.Summary.LowStockItems)
	assert.False(t, got.GeneratedAt.IsZero())
}

func TestRecentEventsCapped(t *testing.T) {
	t.Parallel()

	b, events, _, _ := newTestBuilder(t)
	ctx := context.Background()

	for i := int64(1); i <= 120; i++ {
		_, err := events.Append(ctx, &domain.Event{
			EventType:  "STOCK_ADJUSTED",
			EntityType: "stock_item",
			EntityID:   i,
		})
		require.NoError(t, err)
	}

	// Requests above the cap are clamped to it.
	got, err := b.GetRecentEvents(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, got, 50)

	// Newest first.
	assert.Equal(t, int64(120), got[0].EntityID)

	got, err = b.GetRecentEvents(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestActiveInsightDetailsTruncated(t *testing.T) {
	t.Parallel()

	b, _, insights, _ := newTestBuilder(t)
	ctx := context.Background()

	long := strings.Repeat("a", 5000)
	require.NoError(t, insights.Create(ctx, &domain.Insight{
		InsightType: "overdue_payables",
		Severity:    domain.SeverityWarning,
		Title:       "Overdue payables",
		Details:     long,
		EntityType:  "payable",
		EntityID:    3,
		Status:      domain.InsightStatusActive,
		GeneratedAt: time.Now(),
	}))

	got, err := b.GetActiveInsights(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Less(t, len(got[0].Details), len(long))
	assert.True(t, strings.HasSuffix(got[0].Details, "…"))
}

func TestActiveInsightsExcludeDismissed(t *testing.T) {
	t.Parallel()

	b, _, insights, _ := newTestBuilder(t)
	ctx := context.Background()

	ins := &domain.Insight{
		InsightType: "expiring_batches",
		Severity:    domain.SeverityInfo,
		Title:       "Batch near expiry",
		EntityType:  "production_batch",
		EntityID:    9,
		Status:      domain.InsightStatusActive,
		GeneratedAt: time.Now(),
	}
	require.NoError(t, insights.Create(ctx, ins))

	ok, err := insights.Dismiss(ctx, ins.ID, 999)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := b.GetActiveInsights(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
