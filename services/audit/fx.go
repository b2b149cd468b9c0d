package audit

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/middleware"
	"salesdesk/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(NewService, provideRecorder, NewHandler),
	fx.Invoke(registerRoutes),
)

var TaskModule = fx.Module("audit.task",
	fx.Provide(NewService, provideRecorder, NewTask),
	fx.Invoke(registerTaskHandlers),
)

func provideRecorder(s *Service) Recorder {
	return s
}

func registerRoutes(api httpapi.APIGroup, enforcer access.Enforcer, h *Handler) {
	api.GET("/audit-logs", middleware.Authorize(enforcer, access.Audit, access.Read), h.List)
}

func registerTaskHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(taskname.AuditArchive, t.HandleArchiveTask)
}
