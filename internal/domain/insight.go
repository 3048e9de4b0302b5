package domain

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type InsightSeverity string

const (
	SeverityInfo     InsightSeverity = "info"
	SeverityWarning  InsightSeverity = "warning"
	SeverityCritical InsightSeverity = "critical"
)

type InsightStatus string

const (
	InsightStatusActive    InsightStatus = "active"
	InsightStatusDismissed InsightStatus = "dismissed"
	InsightStatusResolved  InsightStatus = "resolved"
)

// ValidTransition checks if an insight status transition is allowed.
// Insights are never hard-deleted; active is the only non-terminal state.
func (s InsightStatus) ValidTransition(to InsightStatus) bool {
	if s != InsightStatusActive {
		return false
	}
	return to == InsightStatusDismissed || to == InsightStatusResolved
}

// Insight is a deduplicated finding produced by a monitoring rule. At most one
// active insight may exist per fingerprint at any time.
type Insight struct {
	ID          uuid.UUID       `json:"id"`
	InsightType string          `json:"insight_type"`
	Severity    InsightSeverity `json:"severity"`
	Title       string          `json:"title"`
	Summary     string          `json:"summary"`
	Details     string          `json:"details,omitempty"`
	EvidenceIDs []int64         `json:"evidence_ids,omitempty"` // event IDs backing the finding
	Module      string          `json:"module,omitempty"`
	EntityType  string          `json:"entity_type,omitempty"`
	EntityID    int64           `json:"entity_id,omitempty"`
	Status      InsightStatus   `json:"status"`
	GeneratedAt time.Time       `json:"generated_at"`
	DismissedAt *time.Time      `json:"dismissed_at,omitempty"`
	DismissedBy *int64          `json:"dismissed_by,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

// Fingerprint identifies the finding independently of its wording, so repeated
// checks update the existing active insight instead of duplicating it.
func (i *Insight) Fingerprint() string {
	return Fingerprint(i.InsightType, i.EntityType, i.EntityID)
}

func Fingerprint(insightType, entityType string, entityID int64) string {
	return fmt.Sprintf("%s|%s|%s", insightType, entityType, strconv.FormatInt(entityID, 10))
}

// Expired reports whether the insight carries an expiry in the past. Expired
// active insights are treated as dismissed by read paths (lazy expiry).
func (i *Insight) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

type InsightFilter struct {
	Status   InsightStatus
	Severity InsightSeverity
	Limit    int
}

type InsightRepository interface {
	Create(ctx context.Context, ins *Insight) error
	GetByID(ctx context.Context, id uuid.UUID) (*Insight, error)
	// GetActiveByFingerprint returns ErrNotFound when no active, unexpired
	// insight carries the fingerprint.
	GetActiveByFingerprint(ctx context.Context, fp string) (*Insight, error)
	UpdateEvidence(ctx context.Context, id uuid.UUID, details string, evidenceIDs []int64) error
	List(ctx context.Context, filter InsightFilter) ([]*Insight, error)
	// Dismiss and Resolve are conditional on the insight being active and
	// unexpired; they report false when the transition did not apply.
	Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID) (bool, error)
	CountActive(ctx context.Context) (int64, error)
}
