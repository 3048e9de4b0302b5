package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type ListFlagsOutput struct {
	Body []*domain.FeatureFlag
}

type FlagGrantInput struct {
	Name string `path:"name" maxLength:"100" doc:"Flag name"`
	Body struct {
		UserID int64 `json:"user_id" minimum:"1" doc:"User to grant or revoke"`
	}
}

type FlagRoleInput struct {
	Name string `path:"name" maxLength:"100" doc:"Flag name"`
	Body struct {
		Role string `json:"role" enum:"admin,manager,user,viewer" doc:"Role to allow"`
	}
}

type FlagRolloutInput struct {
	Name string `path:"name" maxLength:"100" doc:"Flag name"`
	Body struct {
		Percentage int `json:"percentage" minimum:"0" maximum:"100" doc:"Rollout percentage"`
	}
}

type FlagGlobalInput struct {
	Name string `path:"name" maxLength:"100" doc:"Flag name"`
	Body struct {
		Enabled bool `json:"enabled" doc:"Enable or disable for everyone"`
	}
}

func RegisterFlagRoutes(api huma.API, flags *gate.FlagService, guard *Guard) {
	audit := func(ctx context.Context, userID int64, role gate.Role, details map[string]any) {
		guard.Auditor.Record(ctx, userID, role, gate.ActionUpdate, gate.ResourceFeatureFlag, true, details)
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-flags",
		Method:      http.MethodGet,
		Path:        "/flags",
		Summary:     "List feature flags",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, _ *struct{}) (*ListFlagsOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionRead)
		if err != nil {
			return nil, err
		}
		return &ListFlagsOutput{Body: flags.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-flag",
		Method:      http.MethodPost,
		Path:        "/flags/{name}/grant",
		Summary:     "Allow-list a user for a flag",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, input *FlagGrantInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}
		if !flags.Grant(ctx, input.Name, input.Body.UserID) {
			return nil, huma.Error500InternalServerError("failed to persist flag change")
		}
		audit(ctx, userID, role, map[string]any{"flag": input.Name, "op": "grant", "target_user": input.Body.UserID})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-flag",
		Method:      http.MethodPost,
		Path:        "/flags/{name}/revoke",
		Summary:     "Remove a user from a flag's allow-list",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, input *FlagGrantInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}
		if !flags.Revoke(ctx, input.Name, input.Body.UserID) {
			return nil, huma.Error500InternalServerError("failed to persist flag change")
		}
		audit(ctx, userID, role, map[string]any{"flag": input.Name, "op": "revoke", "target_user": input.Body.UserID})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allow-flag-role",
		Method:      http.MethodPost,
		Path:        "/flags/{name}/roles",
		Summary:     "Allow a role for a flag",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, input *FlagRoleInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}
		target, ok := gate.ParseRole(input.Body.Role)
		if !ok {
			return nil, huma.Error400BadRequest("unknown role: " + input.Body.Role)
		}
		if !flags.AddRole(ctx, input.Name, target) {
			return nil, huma.Error500InternalServerError("failed to persist flag change")
		}
		audit(ctx, userID, role, map[string]any{"flag": input.Name, "op": "add_role", "target_role": input.Body.Role})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-flag-rollout",
		Method:      http.MethodPost,
		Path:        "/flags/{name}/rollout",
		Summary:     "Set a flag's rollout percentage",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, input *FlagRolloutInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}
		if !flags.SetRolloutPercentage(ctx, input.Name, input.Body.Percentage) {
			return nil, huma.Error500InternalServerError("failed to persist flag change")
		}
		audit(ctx, userID, role, map[string]any{"flag": input.Name, "op": "rollout", "percentage": input.Body.Percentage})
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-flag-global",
		Method:      http.MethodPost,
		Path:        "/flags/{name}/global",
		Summary:     "Enable or disable a flag globally",
		Tags:        []string{"Flags"},
	}, func(ctx context.Context, input *FlagGlobalInput) (*struct{}, error) {
		userID, role, err := guard.Allow(ctx, gate.ResourceFeatureFlag, gate.ActionUpdate)
		if err != nil {
			return nil, err
		}
		if !flags.SetGlobal(ctx, input.Name, input.Body.Enabled) {
			return nil, huma.Error500InternalServerError("failed to persist flag change")
		}
		audit(ctx, userID, role, map[string]any{"flag": input.Name, "op": "global", "enabled": input.Body.Enabled})
		return &struct{}{}, nil
	})
}
