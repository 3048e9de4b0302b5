package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type ListActionsInput struct {
	Status string `query:"status" enum:"suggested,approved,rejected,executed,failed" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of actions"`
}

type ListActionsOutput struct {
	Body []*domain.Action
}

type ProposeActionInput struct {
	Body struct {
		InsightID      *uuid.UUID     `json:"insight_id,omitempty" doc:"Insight that motivated the action"`
		ActionType     string         `json:"action_type" minLength:"1" maxLength:"100" doc:"Action type"`
		Title          string         `json:"title" minLength:"1" maxLength:"255" doc:"Human-readable title"`
		Description    string         `json:"description,omitempty" maxLength:"2000" doc:"Longer description"`
		TargetModule   string         `json:"target_module" minLength:"1" maxLength:"100" doc:"ERP module to mutate"`
		TargetMutation string         `json:"target_mutation" minLength:"1" maxLength:"100" doc:"Mutation to invoke"`
		Payload        map[string]any `json:"payload,omitempty" doc:"Mutation arguments"`
	}
}

type ActionOutput struct {
	Body *domain.Action
}

type ActionIDInput struct {
	ID uuid.UUID `path:"id" doc:"Action ID"`
}

type RejectActionInput struct {
	ID   uuid.UUID `path:"id" doc:"Action ID"`
	Body struct {
		Reason string `json:"reason" minLength:"1" maxLength:"1000" doc:"Why the action is rejected"`
	}
}

// decisionError maps workflow errors to HTTP statuses. The workflow audits
// its own RBAC denials, so the handler only translates.
func decisionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return huma.Error403Forbidden(denialMessage)
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("action not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("action is not in the required state")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest("invalid request")
	case errors.Is(err, domain.ErrExecutionFailed):
		return huma.Error502BadGateway("action execution failed")
	default:
		return huma.Error500InternalServerError("action operation failed", err)
	}
}

func RegisterActionRoutes(api huma.API, workflow ActionWorkflow, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID: "list-actions",
		Method:      http.MethodGet,
		Path:        "/actions",
		Summary:     "List proposed actions",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ListActionsInput) (*ListActionsOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceAIAction, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		actions, err := workflow.List(ctx, domain.ActionFilter{
			Status: domain.ActionStatus(input.Status),
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list actions", err)
		}

		return &ListActionsOutput{Body: actions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "propose-action",
		Method:        http.MethodPost,
		Path:          "/actions",
		Summary:       "Propose an action for approval",
		Tags:          []string{"Actions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *ProposeActionInput) (*ActionOutput, error) {
		userID, _, err := guard.AllowFeature(ctx, gate.ResourceAIAction, gate.ActionCreate, gate.FlagAIActions)
		if err != nil {
			return nil, err
		}

		a := &domain.Action{
			InsightID:      input.Body.InsightID,
			ActionType:     input.Body.ActionType,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			TargetModule:   input.Body.TargetModule,
			TargetMutation: input.Body.TargetMutation,
			Payload:        input.Body.Payload,
			CreatedBy:      &userID,
		}
		if err := workflow.Propose(ctx, a); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest("missing required action fields")
			}
			return nil, huma.Error500InternalServerError("failed to propose action", err)
		}

		return &ActionOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/approve",
		Summary:     "Approve a suggested action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ActionIDInput) (*struct{}, error) {
		userID, role, err := guard.Caller(ctx, gate.ResourceAIAction)
		if err != nil {
			return nil, err
		}

		if err := workflow.Approve(ctx, input.ID, userID, role); err != nil {
			return nil, decisionError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/reject",
		Summary:     "Reject a suggested action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *RejectActionInput) (*struct{}, error) {
		userID, role, err := guard.Caller(ctx, gate.ResourceAIAction)
		if err != nil {
			return nil, err
		}

		if err := workflow.Reject(ctx, input.ID, input.Body.Reason, userID, role); err != nil {
			return nil, decisionError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/execute",
		Summary:     "Execute an approved action",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ActionIDInput) (*struct{}, error) {
		userID, role, err := guard.Caller(ctx, gate.ResourceAIAction)
		if err != nil {
			return nil, err
		}

		if err := workflow.Execute(ctx, input.ID, userID, role); err != nil {
			return nil, decisionError(err)
		}
		return &struct{}{}, nil
	})
}
