package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/cocoflow/insight-engine/internal/api/v1"
	"github.com/cocoflow/insight-engine/internal/api/ws"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterInsightRoutes(api, deps.Engine, deps.Guard)
	v1.RegisterActionRoutes(api, deps.Workflow, deps.Guard)
	v1.RegisterEventRoutes(api, deps.Events, deps.Guard)
	v1.RegisterAssistantRoutes(api, deps.Builder, deps.Guard)
	v1.RegisterStatsRoutes(api, deps.Events, deps.Engine, deps.Workflow, deps.Collector, deps.Guard)
	v1.RegisterFlagRoutes(api, deps.Guard.Flags, deps.Guard)
	v1.RegisterNotificationRoutes(api, deps.Notifier, deps.Guard)
	v1.RegisterAuditRoutes(api, deps.AuditLog, deps.Gate, deps.Guard)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/events", hub.ServeEvents)
}
