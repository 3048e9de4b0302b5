package v1_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	v1 "github.com/cocoflow/insight-engine/internal/api/v1"
	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/metrics"
	"github.com/cocoflow/insight-engine/internal/notify"
	"github.com/cocoflow/insight-engine/internal/server/middleware"
	"github.com/cocoflow/insight-engine/internal/store/memory"
)

// ---------------------------------------------------------------------------
// Context helpers: inject user/role into context for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID int64, role string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

// newGuard builds a Guard over in-memory gate services. Flags start empty;
// enable what a test needs via guard.Flags.
func newGuard(t *testing.T) *v1.Guard {
	t.Helper()

	log := zerolog.Nop()
	flags, err := gate.NewFlagService(context.Background(), memory.NewFlagRepo(), log)
	require.NoError(t, err)

	return &v1.Guard{
		Flags:   flags,
		Limiter: gate.NewRateLimiter(t.Context(), 1000, 1000),
		Auditor: gate.NewAuditor(memory.NewAuditRepo(), metrics.NewCollector(), log),
	}
}

// newStrictGuard is newGuard with a rate limiter that admits only burst
// requests per user and resource.
func newStrictGuard(t *testing.T, burst int) *v1.Guard {
	t.Helper()

	g := newGuard(t)
	g.Limiter = gate.NewRateLimiter(t.Context(), 0.001, burst)
	return g
}

// ---------------------------------------------------------------------------
// Mock InsightEngine
// ---------------------------------------------------------------------------

type mockEngine struct {
	runAllChecksFunc func(ctx context.Context) domain.CheckResult
	listFunc         func(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error)
	dismissFunc      func(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error)
	resolveFunc      func(ctx context.Context, id uuid.UUID) (bool, error)
	countActiveFunc  func(ctx context.Context) (int64, error)
}

func (m *mockEngine) RunAllChecks(ctx context.Context) domain.CheckResult {
	return m.runAllChecksFunc(ctx)
}

func (m *mockEngine) List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockEngine) Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	return m.dismissFunc(ctx, id, byUserID)
}

func (m *mockEngine) Resolve(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.resolveFunc(ctx, id)
}

func (m *mockEngine) CountActive(ctx context.Context) (int64, error) {
	return m.countActiveFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock ActionWorkflow
// ---------------------------------------------------------------------------

type mockWorkflow struct {
	proposeFunc func(ctx context.Context, a *domain.Action) error
	listFunc    func(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error)
	approveFunc func(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error
	rejectFunc  func(ctx context.Context, id uuid.UUID, reason string, byUserID int64, role gate.Role) error
	executeFunc func(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error
}

func (m *mockWorkflow) Propose(ctx context.Context, a *domain.Action) error {
	return m.proposeFunc(ctx, a)
}

func (m *mockWorkflow) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockWorkflow) Approve(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error {
	return m.approveFunc(ctx, id, byUserID, role)
}

func (m *mockWorkflow) Reject(ctx context.Context, id uuid.UUID, reason string, byUserID int64, role gate.Role) error {
	return m.rejectFunc(ctx, id, reason, byUserID, role)
}

func (m *mockWorkflow) Execute(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error {
	return m.executeFunc(ctx, id, byUserID, role)
}

// ---------------------------------------------------------------------------
// Mock EventService
// ---------------------------------------------------------------------------

type mockEvents struct {
	emitFunc       func(ctx context.Context, e *domain.Event) (int64, error)
	emitBatchFunc  func(ctx context.Context, events []*domain.Event) ([]int64, error)
	recentFunc     func(ctx context.Context, limit int) ([]*domain.Event, error)
	countSinceFunc func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockEvents) Emit(ctx context.Context, e *domain.Event) (int64, error) {
	return m.emitFunc(ctx, e)
}

func (m *mockEvents) EmitBatch(ctx context.Context, events []*domain.Event) ([]int64, error) {
	return m.emitBatchFunc(ctx, events)
}

func (m *mockEvents) RecentEvents(ctx context.Context, limit int) ([]*domain.Event, error) {
	return m.recentFunc(ctx, limit)
}

func (m *mockEvents) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return m.countSinceFunc(ctx, since)
}

// ---------------------------------------------------------------------------
// Mock ContextBuilder
// ---------------------------------------------------------------------------

type mockBuilder struct {
	buildContextFunc func(ctx context.Context) (*assistant.AssistantContext, error)
	summaryFunc      func(ctx context.Context) (*domain.SystemSummary, error)
}

func (m *mockBuilder) BuildContext(ctx context.Context) (*assistant.AssistantContext, error) {
	return m.buildContextFunc(ctx)
}

func (m *mockBuilder) GetSystemSummary(ctx context.Context) (*domain.SystemSummary, error) {
	return m.summaryFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, email, password, name, role string) (*domain.User, error)
	loginFunc        func(ctx context.Context, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name, role string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name, role)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock Notifier
// ---------------------------------------------------------------------------

type mockNotifier struct {
	getConfigFunc  func(ctx context.Context) (*domain.NotificationConfig, error)
	saveConfigFunc func(ctx context.Context, patch notify.ConfigPatch) (*domain.NotificationConfig, error)
}

func (m *mockNotifier) GetConfig(ctx context.Context) (*domain.NotificationConfig, error) {
	return m.getConfigFunc(ctx)
}

func (m *mockNotifier) SaveConfig(ctx context.Context, patch notify.ConfigPatch) (*domain.NotificationConfig, error) {
	return m.saveConfigFunc(ctx, patch)
}
