package target

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"
	"salesdesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("target.service",
	fx.Provide(NewService, NewEngine, NewHandler),
	fx.Invoke(registerRoutes),
)

var TaskModule = fx.Module("target.task",
	fx.Provide(NewService, NewTask),
	fx.Invoke(registerTaskHandlers),
)

func registerRoutes(api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	g := api.Group("/targets")
	g.GET("", middleware.Authorize(enforcer, access.Targets, access.Read), h.List)
	g.GET("/summary", middleware.Authorize(enforcer, access.Targets, access.Read), h.Summary)
	g.GET("/:id", middleware.Authorize(enforcer, access.Targets, access.Read), h.Get)
	g.POST("", middleware.Authorize(enforcer, access.Targets, access.Create), h.Create)
	g.PUT("/:id", middleware.Authorize(enforcer, access.Targets, access.Update), h.Update)
	g.DELETE("/:id", middleware.Authorize(enforcer, access.Targets, access.Delete), h.Delete)
}

func registerTaskHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(taskname.TargetSummaryRefresh, t.HandleSummaryRefreshTask)
}
