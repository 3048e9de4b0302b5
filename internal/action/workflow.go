// Package action implements the human-approval state machine for remediation
// actions: suggested -> approved -> executed, with rejection and failure
// branches. Transitions are role-gated and audited.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/metrics"
)

// Executor applies an approved action's mutation against its target module.
// Implementations are the bridge back into the ERP's write paths.
type Executor interface {
	Execute(ctx context.Context, module, mutation string, payload map[string]any) error
}

// executeTimeout bounds one mutation attempt.
const executeTimeout = 30 * time.Second

// Workflow drives action lifecycle transitions. Approve/reject rely on the
// repository's conditional updates; Execute additionally serializes per
// actionId so a single action can never run twice concurrently.
type Workflow struct {
	actions  domain.ActionRepository
	executor Executor
	auditor  *gate.Auditor
	metrics  *metrics.Collector
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewWorkflow(actions domain.ActionRepository, executor Executor, auditor *gate.Auditor, collector *metrics.Collector, log zerolog.Logger) *Workflow {
	return &Workflow{
		actions:  actions,
		executor: executor,
		auditor:  auditor,
		metrics:  collector,
		log:      log.With().Str("component", "action_workflow").Logger(),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// Propose records a new suggested action.
func (w *Workflow) Propose(ctx context.Context, a *domain.Action) error {
	if a.ActionType == "" || a.Title == "" || a.TargetModule == "" || a.TargetMutation == "" {
		return fmt.Errorf("action.Propose: %w", domain.ErrValidation)
	}

	a.ID = uuid.New()
	a.Status = domain.ActionStatusSuggested
	a.SuggestedAt = time.Now()

	if err := w.actions.Create(ctx, a); err != nil {
		return fmt.Errorf("action.Propose: %w", err)
	}

	w.metrics.RecordMetric("actions_proposed", 1, map[string]string{"type": a.ActionType})
	return nil
}

// Approve transitions a suggested action to approved. Requires the
// ai_action/approve capability.
func (w *Workflow) Approve(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error {
	if !gate.HasPermission(role, gate.ResourceAIAction, gate.ActionApprove) {
		w.auditor.Record(ctx, byUserID, role, "approve", "ai_action", false, detailsFor(id))
		return fmt.Errorf("action.Approve: %w", domain.ErrPermissionDenied)
	}

	ok, err := w.actions.MarkApproved(ctx, id, byUserID)
	if err != nil {
		return fmt.Errorf("action.Approve: %w", err)
	}
	if !ok {
		if _, gerr := w.actions.GetByID(ctx, id); gerr != nil {
			return fmt.Errorf("action.Approve: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("action.Approve: not in suggested state: %w", domain.ErrConflict)
	}

	w.auditor.Record(ctx, byUserID, role, "approve", "ai_action", true, detailsFor(id))
	return nil
}

// Reject transitions a suggested action to rejected. The reason is mandatory
// and stored on the record.
func (w *Workflow) Reject(ctx context.Context, id uuid.UUID, reason string, byUserID int64, role gate.Role) error {
	if !gate.HasPermission(role, gate.ResourceAIAction, gate.ActionReject) {
		w.auditor.Record(ctx, byUserID, role, "reject", "ai_action", false, detailsFor(id))
		return fmt.Errorf("action.Reject: %w", domain.ErrPermissionDenied)
	}
	if reason == "" {
		return fmt.Errorf("action.Reject: reason required: %w", domain.ErrValidation)
	}

	ok, err := w.actions.MarkRejected(ctx, id, reason, byUserID)
	if err != nil {
		return fmt.Errorf("action.Reject: %w", err)
	}
	if !ok {
		if _, gerr := w.actions.GetByID(ctx, id); gerr != nil {
			return fmt.Errorf("action.Reject: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("action.Reject: not in suggested state: %w", domain.ErrConflict)
	}

	w.auditor.Record(ctx, byUserID, role, "reject", "ai_action", true, detailsFor(id))
	return nil
}

// Execute runs an approved action's mutation. On failure the action moves to
// failed with the reason retained; the record is never retried in place.
func (w *Workflow) Execute(ctx context.Context, id uuid.UUID, byUserID int64, role gate.Role) error {
	if !gate.HasPermission(role, gate.ResourceAIAction, gate.ActionExecute) {
		w.auditor.Record(ctx, byUserID, role, "execute", "ai_action", false, detailsFor(id))
		return fmt.Errorf("action.Execute: %w", domain.ErrPermissionDenied)
	}

	// One execution at a time per action.
	lock := w.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	a, err := w.actions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("action.Execute: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("action.Execute: %w", err)
	}
	if a.Status != domain.ActionStatusApproved {
		return fmt.Errorf("action.Execute: not in approved state: %w", domain.ErrConflict)
	}

	execCtx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	execErr := w.executor.Execute(execCtx, a.TargetModule, a.TargetMutation, a.Payload)
	if execErr != nil {
		if _, ferr := w.actions.MarkFailed(ctx, id, execErr.Error()); ferr != nil {
			w.log.Error().Err(ferr).Str("action_id", id.String()).Msg("recording action failure")
		}
		w.dropLock(id)
		w.auditor.Record(ctx, byUserID, role, "execute", "ai_action", false, map[string]any{
			"action_id": id.String(),
			"reason":    execErr.Error(),
		})
		w.metrics.RecordError("action_execute", execErr.Error(), "")
		return fmt.Errorf("action.Execute: %s.%s: %w", a.TargetModule, a.TargetMutation, domain.ErrExecutionFailed)
	}

	ok, err := w.actions.MarkExecuted(ctx, id)
	if err != nil {
		return fmt.Errorf("action.Execute: %w", err)
	}
	if !ok {
		// Lost a race despite the lock (e.g. out-of-band transition).
		return fmt.Errorf("action.Execute: %w", domain.ErrConflict)
	}

	w.dropLock(id)
	w.auditor.Record(ctx, byUserID, role, "execute", "ai_action", true, detailsFor(id))
	w.metrics.RecordMetric("actions_executed", 1, map[string]string{"type": a.ActionType})
	return nil
}

// List returns actions matching the filter, newest first.
func (w *Workflow) List(ctx context.Context, filter domain.ActionFilter) ([]*domain.Action, error) {
	out, err := w.actions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("action.List: %w", err)
	}
	return out, nil
}

func (w *Workflow) lockFor(id uuid.UUID) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	lock, ok := w.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[id] = lock
	}
	return lock
}

// dropLock reaps the per-action mutex once the action reached a terminal
// state. A waiter still holding the old mutex is harmless: the conditional
// update on status rejects any second execution attempt.
func (w *Workflow) dropLock(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.locks, id)
}

func detailsFor(id uuid.UUID) map[string]any {
	return map[string]any{"action_id": id.String()}
}
