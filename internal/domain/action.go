package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActionStatus string

const (
	ActionStatusSuggested ActionStatus = "suggested"
	ActionStatusApproved  ActionStatus = "approved"
	ActionStatusRejected  ActionStatus = "rejected"
	ActionStatusExecuted  ActionStatus = "executed"
	ActionStatusFailed    ActionStatus = "failed"
)

// ValidTransition checks if an action state transition is allowed.
// Allowed: suggested->approved, suggested->rejected, approved->executed,
// approved->failed. Failed actions are retried by proposing a new action,
// never by mutating the failed record.
func (s ActionStatus) ValidTransition(to ActionStatus) bool {
	switch s {
	case ActionStatusSuggested:
		return to == ActionStatusApproved || to == ActionStatusRejected
	case ActionStatusApproved:
		return to == ActionStatusExecuted || to == ActionStatusFailed
	default:
		return false
	}
}

// Action is a proposed remediation that mutates business data only after a
// human approves it.
type Action struct {
	ID             uuid.UUID      `json:"id"`
	InsightID      *uuid.UUID     `json:"insight_id,omitempty"`
	ConversationID *uuid.UUID     `json:"conversation_id,omitempty"`
	ActionType     string         `json:"action_type"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	TargetModule   string         `json:"target_module"`
	TargetMutation string         `json:"target_mutation"`
	Payload        map[string]any `json:"payload,omitempty"`
	Status         ActionStatus   `json:"status"`
	StatusReason   string         `json:"status_reason,omitempty"` // rejection or failure reason
	SuggestedAt    time.Time      `json:"suggested_at"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	DecidedBy      *int64         `json:"decided_by,omitempty"`
	CreatedBy      *int64         `json:"created_by,omitempty"`
}

type ActionFilter struct {
	Status ActionStatus
	Limit  int
}

// ActionRepository transitions are conditional updates on the current status,
// so two concurrent approvals of the same action cannot both succeed.
type ActionRepository interface {
	Create(ctx context.Context, a *Action) error
	GetByID(ctx context.Context, id uuid.UUID) (*Action, error)
	List(ctx context.Context, filter ActionFilter) ([]*Action, error)
	// MarkApproved applies only when the action is suggested.
	MarkApproved(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error)
	// MarkRejected applies only when the action is suggested.
	MarkRejected(ctx context.Context, id uuid.UUID, reason string, byUserID int64) (bool, error)
	// MarkExecuted applies only when the action is approved.
	MarkExecuted(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkFailed applies only when the action is approved; the reason is
	// retained on the record.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}
