package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type AuditListInput struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of entries"`
}

type AuditByUserInput struct {
	UserID int64 `path:"id" doc:"User ID"`
	Limit  int   `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum number of entries"`
}

type AuditListOutput struct {
	Body []*domain.AuditEntry
}

type ChecklistOutput struct {
	Body *gate.ChecklistReport
}

func RegisterAuditRoutes(api huma.API, auditLog AuditLog, checklist ChecklistRunner, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "recent-audit-entries",
		Method:      http.MethodGet,
		Path:        "/audit/recent",
		Summary:     "List recent audit entries, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *AuditListInput) (*AuditListOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceAudit, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		entries, err := auditLog.ListRecent(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit entries", err)
		}

		return &AuditListOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "audit-entries-by-user",
		Method:      http.MethodGet,
		Path:        "/audit/users/{id}",
		Summary:     "List audit entries for one user",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *AuditByUserInput) (*AuditListOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceAudit, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		entries, err := auditLog.ListByUser(ctx, input.UserID, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit entries", err)
		}

		return &AuditListOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "security-checklist",
		Method:      http.MethodGet,
		Path:        "/security/checklist",
		Summary:     "Probe the security subsystems",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, _ *struct{}) (*ChecklistOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceAudit, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		return &ChecklistOutput{Body: checklist.RunSecurityChecklist(ctx)}, nil
	})
}
