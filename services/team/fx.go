package team

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"

	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	g := api.Group("/teams")
	g.GET("", middleware.Authorize(enforcer, access.Teams, access.Read), h.List)
	g.GET("/stats", middleware.Authorize(enforcer, access.Teams, access.Read), h.Stats)
	g.GET("/:id", middleware.Authorize(enforcer, access.Teams, access.Read), h.Get)
	g.POST("", middleware.Authorize(enforcer, access.Teams, access.Create), h.Create)
	g.PUT("/:id", middleware.Authorize(enforcer, access.Teams, access.Update), h.Update)
	g.DELETE("/:id", middleware.Authorize(enforcer, access.Teams, access.Delete), h.Delete)
}
