package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/action"
)

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	t.Run("exact_handler", func(t *testing.T) {
		t.Parallel()

		reg := action.NewRegistry()
		var got map[string]any
		reg.Register("stock", "create_purchase_request", func(_ context.Context, payload map[string]any) error {
			got = payload
			return nil
		})

		err := reg.Execute(t.Context(), "stock", "create_purchase_request", map[string]any{"item_id": int64(7)})
		require.NoError(t, err)
		assert.Equal(t, int64(7), got["item_id"])
	})

	t.Run("module_fallback", func(t *testing.T) {
		t.Parallel()

		reg := action.NewRegistry()
		var gotMutation string
		reg.RegisterModule("finance", func(_ context.Context, mutation string, _ map[string]any) error {
			gotMutation = mutation
			return nil
		})

		err := reg.Execute(t.Context(), "finance", "schedule_payment", nil)
		require.NoError(t, err)
		assert.Equal(t, "schedule_payment", gotMutation)
	})

	t.Run("exact_wins_over_module", func(t *testing.T) {
		t.Parallel()

		reg := action.NewRegistry()
		reg.RegisterModule("stock", func(_ context.Context, _ string, _ map[string]any) error {
			return errors.New("module handler should not run")
		})
		reg.Register("stock", "adjust_minimum", func(_ context.Context, _ map[string]any) error {
			return nil
		})

		assert.NoError(t, reg.Execute(t.Context(), "stock", "adjust_minimum", nil))
	})

	t.Run("unknown_target", func(t *testing.T) {
		t.Parallel()

		reg := action.NewRegistry()
		err := reg.Execute(t.Context(), "hr", "promote", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hr.promote")
	})
}
