package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/cocoflow/insight-engine/internal/api/v1"
	"github.com/cocoflow/insight-engine/internal/domain"
)

// ---------------------------------------------------------------------------
// TestListInsights
// ---------------------------------------------------------------------------

func TestListInsights(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sample := []*domain.Insight{
		{
			ID: uuid.New(), InsightType: "critical_stock", Severity: domain.SeverityCritical,
			Title: "Coconut oil below minimum", Status: domain.InsightStatusActive,
			EntityType: "stock_item", EntityID: 7, GeneratedAt: now,
		},
		{
			ID: uuid.New(), InsightType: "expiring_batches", Severity: domain.SeverityWarning,
			Title: "3 batches expire this week", Status: domain.InsightStatusActive,
			EntityType: "production_batch", EntityID: 0, GeneratedAt: now,
		},
	}

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			listFunc: func(_ context.Context, filter domain.InsightFilter) ([]*domain.Insight, error) {
				assert.Equal(t, domain.InsightStatusActive, filter.Status)
				assert.Equal(t, 50, filter.Limit)
				return sample, nil
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.GetCtx(userCtx(1, "viewer"), "/insights?status=active")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.Insight
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 2)
		assert.Equal(t, "Coconut oil below minimum", body[0].Title)
		assert.Equal(t, domain.SeverityCritical, body[0].Severity)
	})

	t.Run("unknown_status_rejected", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.GetCtx(userCtx(1, "viewer"), "/insights?status=archived")

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("missing_identity", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.GetCtx(context.Background(), "/insights")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("store_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			listFunc: func(_ context.Context, _ domain.InsightFilter) ([]*domain.Insight, error) {
				return nil, errors.New("db connection refused")
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.GetCtx(userCtx(1, "viewer"), "/insights")

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestDismissInsight
// ---------------------------------------------------------------------------

func TestDismissInsight(t *testing.T) {
	t.Parallel()

	insightID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			dismissFunc: func(_ context.Context, id uuid.UUID, byUserID int64) (bool, error) {
				assert.Equal(t, insightID, id)
				assert.Equal(t, int64(42), byUserID)
				return true, nil
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(42, "manager"), "/insights/"+insightID.String()+"/dismiss")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("viewer_denied_generically", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			dismissFunc: func(_ context.Context, _ uuid.UUID, _ int64) (bool, error) {
				t.Fatal("engine should not be reached")
				return false, nil
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(42, "viewer"), "/insights/"+insightID.String()+"/dismiss")

		assert.Equal(t, http.StatusForbidden, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.Contains(t, errBody["detail"], "permission denied")
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			dismissFunc: func(_ context.Context, _ uuid.UUID, _ int64) (bool, error) {
				return false, domain.ErrNotFound
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(42, "manager"), "/insights/"+uuid.New().String()+"/dismiss")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("already_dismissed", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			dismissFunc: func(_ context.Context, _ uuid.UUID, _ int64) (bool, error) {
				return false, nil
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(42, "manager"), "/insights/"+insightID.String()+"/dismiss")

		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestResolveInsight
// ---------------------------------------------------------------------------

func TestResolveInsight(t *testing.T) {
	t.Parallel()

	insightID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			resolveFunc: func(_ context.Context, id uuid.UUID) (bool, error) {
				assert.Equal(t, insightID, id)
				return true, nil
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(7, "admin"), "/insights/"+insightID.String()+"/resolve")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("user_role_denied", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterInsightRoutes(api, &mockEngine{}, newGuard(t))

		resp := api.PostCtx(userCtx(7, "user"), "/insights/"+insightID.String()+"/resolve")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestRunInsightChecks
// ---------------------------------------------------------------------------

func TestRunInsightChecks(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			runAllChecksFunc: func(_ context.Context) domain.CheckResult {
				return domain.CheckResult{Created: 3, Skipped: 2, Errors: 1}
			},
		}
		v1.RegisterInsightRoutes(api, engine, newGuard(t))

		resp := api.PostCtx(userCtx(7, "manager"), "/insights/checks/run")

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.CheckResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 3, body.Created)
		assert.Equal(t, 2, body.Skipped)
		assert.Equal(t, 1, body.Errors)
	})

	t.Run("user_role_denied", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterInsightRoutes(api, &mockEngine{}, newGuard(t))

		resp := api.PostCtx(userCtx(7, "user"), "/insights/checks/run")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("rate_limited", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		engine := &mockEngine{
			runAllChecksFunc: func(_ context.Context) domain.CheckResult { return domain.CheckResult{} },
		}
		v1.RegisterInsightRoutes(api, engine, newStrictGuard(t, 1))

		ctx := userCtx(7, "manager")
		first := api.PostCtx(ctx, "/insights/checks/run")
		second := api.PostCtx(ctx, "/insights/checks/run")

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})
}
