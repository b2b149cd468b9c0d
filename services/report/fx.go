package report

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"
	"salesdesk/services/target"

	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(
		NewService,
		NewHandler,
		provideTargetSummary,
	),
	fx.Invoke(registerRoutes),
)

func provideTargetSummary(s *target.Service) TargetSummary {
	return s
}

func registerRoutes(api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	dashboard := api.Group("/dashboard")
	dashboard.GET("/stats", middleware.Authorize(enforcer, access.Leads, access.Read), h.Dashboard)
	dashboard.GET("/activities", middleware.Authorize(enforcer, access.Leads, access.Read), h.Activities)

	api.GET("/reports", middleware.Authorize(enforcer, access.Reports, access.Read), h.Report)
}
