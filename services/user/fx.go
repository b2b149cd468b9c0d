package user

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"
	"salesdesk/services/lead"
	"salesdesk/services/team"

	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(
		NewService,
		NewHandler,
		providePrincipalLoader,
		provideTeamDirectory,
		provideMemberDirectory,
	),
	fx.Invoke(registerRoutes),
)

func providePrincipalLoader(s *Service) middleware.PrincipalLoader {
	return s
}

func provideTeamDirectory(s *Service) lead.TeamDirectory {
	return s
}

func provideMemberDirectory(s *Service) team.MemberDirectory {
	return s
}

func registerRoutes(public httpapi.PublicGroup, api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	auth := public.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	api.POST("/auth/logout", h.Logout)
	api.GET("/me", h.Me)

	g := api.Group("/users")
	g.GET("", middleware.Authorize(enforcer, access.Users, access.Read), h.List)
	g.GET("/stats", middleware.Authorize(enforcer, access.Users, access.Read), h.Stats)
	g.POST("", middleware.Authorize(enforcer, access.Users, access.Create), h.Create)
	g.PUT("/:id", middleware.Authorize(enforcer, access.Users, access.Update), h.Update)
	g.DELETE("/:id", middleware.Authorize(enforcer, access.Users, access.Delete), h.Delete)
}
