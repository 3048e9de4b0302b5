package gate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/metrics"
)

// Auditor appends audit entries without blocking the calling operation: a
// failed write is logged and counted as an observability error rather than
// surfaced to the caller.
type Auditor struct {
	repo    domain.AuditRepository
	metrics *metrics.Collector
	log     zerolog.Logger
}

func NewAuditor(repo domain.AuditRepository, collector *metrics.Collector, log zerolog.Logger) *Auditor {
	return &Auditor{
		repo:    repo,
		metrics: collector,
		log:     log.With().Str("component", "audit").Logger(),
	}
}

// Record writes one audit entry. Details are redacted before storage.
func (a *Auditor) Record(ctx context.Context, userID int64, role Role, action, resource string, success bool, details map[string]any) {
	redacted := make(map[string]any, len(details))
	for k, v := range details {
		if s, ok := v.(string); ok {
			redacted[k] = RedactSensitiveData(s)
			continue
		}
		redacted[k] = v
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		UserID:    userID,
		UserRole:  string(role),
		Action:    action,
		Resource:  resource,
		Details:   redacted,
		Success:   success,
		CreatedAt: time.Now(),
	}

	if err := a.repo.Record(ctx, entry); err != nil {
		a.log.Warn().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("audit write failed")
		a.metrics.RecordError("audit_write", err.Error(), "")
	}
}

// Probe verifies the audit subsystem accepts reads, for the security checklist.
func (a *Auditor) Probe(ctx context.Context) error {
	_, err := a.repo.ListRecent(ctx, 1)
	return err
}
