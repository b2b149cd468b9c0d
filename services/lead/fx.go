package lead

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"
	"salesdesk/services/target"

	"go.uber.org/fx"
)

var Module = fx.Module("lead.service",
	fx.Provide(
		NewService,
		NewWorkflow,
		NewHandler,
		provideAllocator,
		provideSummaryInvalidator,
	),
	fx.Invoke(registerRoutes),
)

func provideAllocator(e *target.Engine) Allocator {
	return e
}

func provideSummaryInvalidator(s *target.Service) SummaryInvalidator {
	return s
}

func registerRoutes(api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	g := api.Group("/leads")
	g.GET("", middleware.Authorize(enforcer, access.Leads, access.Read), h.List)
	g.GET("/:id", middleware.Authorize(enforcer, access.Leads, access.Read), h.Get)
	g.POST("", middleware.Authorize(enforcer, access.Leads, access.Create), h.Create)
	g.PUT("/:id", middleware.Authorize(enforcer, access.Leads, access.Update), h.Update)
	g.DELETE("/:id", middleware.Authorize(enforcer, access.Leads, access.Delete), h.Delete)
	g.POST("/:id/notes", middleware.Authorize(enforcer, access.Leads, access.Update), h.AddNote)
}
