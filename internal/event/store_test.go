package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/event"
	"github.com/cocoflow/insight-engine/internal/store/memory"
)

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturePublisher) Publish(_ context.Context, _ string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func newStore(t *testing.T) (*event.Store, *memory.EventRepo, *capturePublisher) {
	t.Helper()

	repo := memory.NewEventRepo()
	pub := &capturePublisher{}
	return event.NewStore(repo, pub, zerolog.Nop()), repo, pub
}

func TestEmitAndRecentEvents(t *testing.T) {
	t.Parallel()

	store, _, pub := newStore(t)
	ctx := context.Background()

	id, err := store.Emit(ctx, &domain.Event{
		EventType:  "COCONUT_LOAD_CREATED",
		EntityType: "coconut_load",
		EntityID:   1,
		Payload:    map[string]any{"weight_kg": 1250.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id2, err := store.Emit(ctx, &domain.Event{
		EventType:  "BATCH_SEALED",
		EntityType: "production_batch",
		EntityID:   9,
	})
	require.NoError(t, err)
	assert.Greater(t, id2, id, "IDs are monotonic")

	recent, err := store.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "BATCH_SEALED", recent[0].EventType, "newest first")
	assert.Equal(t, "COCONUT_LOAD_CREATED", recent[1].EventType)

	assert.Equal(t, 2, pub.count(), "each append is broadcast")
}

func TestEmitRejectsInvalidShape(t *testing.T) {
	t.Parallel()

	store, repo, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Emit(ctx, &domain.Event{EntityType: "coconut_load", EntityID: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "nothing stored on validation failure")
}

func TestEmitSurfacesStorageError(t *testing.T) {
	t.Parallel()

	store, repo, _ := newStore(t)
	repo.FailWrites(true)

	_, err := store.Emit(context.Background(), &domain.Event{
		EventType: "COCONUT_LOAD_CREATED", EntityType: "coconut_load", EntityID: 1,
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestEmitBatchAllOrNothing(t *testing.T) {
	t.Parallel()

	store, repo, _ := newStore(t)
	ctx := context.Background()

	// One invalid event in the middle aborts the whole batch.
	_, err := store.EmitBatch(ctx, []*domain.Event{
		{EventType: "A", EntityType: "x", EntityID: 1},
		{EventType: "", EntityType: "x", EntityID: 2},
		{EventType: "C", EntityType: "x", EntityID: 3},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "no partial batch")

	// Fully valid batch lands atomically with ordered IDs.
	ids, err := store.EmitBatch(ctx, []*domain.Event{
		{EventType: "A", EntityType: "x", EntityID: 1},
		{EventType: "B", EntityType: "x", EntityID: 2},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

func TestRecentEventsDefaultLimit(t *testing.T) {
	t.Parallel()

	store, _, _ := newStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 60; i++ {
		_, err := store.Emit(ctx, &domain.Event{EventType: "T", EntityType: "x", EntityID: i})
		require.NoError(t, err)
	}

	recent, err := store.RecentEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 50, "zero limit falls back to default cap")
}
