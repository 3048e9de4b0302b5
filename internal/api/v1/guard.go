package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/server/middleware"
)

// RBAC and feature-flag denials share one message so callers cannot tell
// which check failed.
const denialMessage = "permission denied"

// Guard runs the security checklist in front of every handler: identity,
// RBAC, optional feature flag, rate limit. Denials are audited; the caller
// only ever sees a generic 403.
type Guard struct {
	Flags   *gate.FlagService
	Limiter *gate.RateLimiter
	Auditor *gate.Auditor
}

// Allow checks identity, RBAC and the rate limit for one operation, returning
// the caller's identity when every check passes.
func (g *Guard) Allow(ctx context.Context, resource, action string) (int64, gate.Role, error) {
	return g.allow(ctx, resource, action, "")
}

// AllowFeature is Allow plus a feature-flag check between RBAC and the rate
// limit.
func (g *Guard) AllowFeature(ctx context.Context, resource, action, flag string) (int64, gate.Role, error) {
	return g.allow(ctx, resource, action, flag)
}

// Caller resolves the request identity and applies the rate limit only. Used
// by operations whose service enforces (and audits) RBAC itself.
func (g *Guard) Caller(ctx context.Context, resource string) (int64, gate.Role, error) {
	userID, role, err := g.identity(ctx)
	if err != nil {
		return 0, "", err
	}
	if d := g.Limiter.Check(userID, resource); !d.Allowed {
		return 0, "", huma.Error429TooManyRequests("rate limit exceeded, retry shortly")
	}
	return userID, role, nil
}

func (g *Guard) allow(ctx context.Context, resource, action, flag string) (int64, gate.Role, error) {
	userID, role, err := g.identity(ctx)
	if err != nil {
		return 0, "", err
	}

	if !gate.HasPermission(role, resource, action) {
		g.Auditor.Record(ctx, userID, role, action, resource, false, map[string]any{"reason": "rbac"})
		return 0, "", huma.Error403Forbidden(denialMessage)
	}
	if flag != "" && !g.Flags.IsEnabled(flag, userID, role) {
		g.Auditor.Record(ctx, userID, role, action, resource, false, map[string]any{"reason": "feature_flag", "flag": flag})
		return 0, "", huma.Error403Forbidden(denialMessage)
	}
	if d := g.Limiter.Check(userID, resource); !d.Allowed {
		return 0, "", huma.Error429TooManyRequests("rate limit exceeded, retry shortly")
	}

	return userID, role, nil
}

func (g *Guard) identity(ctx context.Context) (int64, gate.Role, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return 0, "", huma.Error403Forbidden(denialMessage)
	}
	roleStr, ok := middleware.RoleFromContext(ctx)
	if !ok {
		return 0, "", huma.Error403Forbidden(denialMessage)
	}
	role, ok := gate.ParseRole(roleStr)
	if !ok {
		return 0, "", huma.Error403Forbidden(denialMessage)
	}
	return userID, role, nil
}
