package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is a write-once record of a security-relevant operation.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	UserID    int64          `json:"user_id"`
	UserRole  string         `json:"user_role"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Details   map[string]any `json:"details,omitempty"`
	Success   bool           `json:"success"`
	CreatedAt time.Time      `json:"created_at"`
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]*AuditEntry, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*AuditEntry, error)
}
