package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/notify"
)

// InsightEngine abstracts the rule engine for handler testing.
// *insight.Engine satisfies this interface.
type InsightEngine interface {
	RunAllChecks(ctx context.Context) domain.CheckResult
	List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error)
	Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID) (bool, error)
	CountActive(ctx context.Context) (int64, error)
}

// ActionWorkflow abstracts the approval workflow for handler testing.
// *action.Workflow satisfies this interface.
type ActionWorkflow interface {
	Propose(ctx context.Context, a *domain.Action) error
	List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error)
	Approve(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error
	Reject(ctx context.Context, id uuid.UUID, reason string, byUserID int64, role gate.Role) error
	Execute(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error
}

// EventService abstracts the event store for handler testing.
// *event.Store satisfies this interface.
type EventService interface {
	Emit(ctx context.Context, e *domain.Event) (int64, error)
	EmitBatch(ctx context.Context, events []*domain.Event) ([]int64, error)
	RecentEvents(ctx context.Context, limit int) ([]*domain.Event, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// ContextBuilder abstracts context assembly for handler testing.
// *assistant.Builder satisfies this interface.
type ContextBuilder interface {
	BuildContext(ctx context.Context) (*assistant.AssistantContext, error)
	GetSystemSummary(ctx context.Context) (*domain.SystemSummary, error)
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name, role string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// Notifier abstracts the notification dispatcher for handler testing.
// *notify.Dispatcher satisfies this interface.
type Notifier interface {
	GetConfig(ctx context.Context) (*domain.NotificationConfig, error)
	SaveConfig(ctx context.Context, patch notify.ConfigPatch) (*domain.NotificationConfig, error)
}

// AuditLog is the read side of the audit trail.
// *postgres.AuditRepo and *memory.AuditRepo satisfy this interface.
type AuditLog interface {
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.AuditEntry, error)
}

// ChecklistRunner probes the security subsystems.
// *gate.Gate satisfies this interface.
type ChecklistRunner interface {
	RunSecurityChecklist(ctx context.Context) *gate.ChecklistReport
}
