package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"salesdesk/pkg/access"
	"salesdesk/pkg/config"
	"salesdesk/pkg/db"
	"salesdesk/pkg/gen"
	"salesdesk/pkg/health"
	"salesdesk/pkg/httpapi"
	"salesdesk/pkg/logger"
	"salesdesk/pkg/otelcol"
	"salesdesk/pkg/profiling"
	"salesdesk/pkg/redis"
	"salesdesk/pkg/security"
	"salesdesk/pkg/sequence"
	"salesdesk/pkg/server"
	"salesdesk/pkg/task"
	"salesdesk/services/audit"
	"salesdesk/services/lead"
	"salesdesk/services/report"
	"salesdesk/services/target"
	"salesdesk/services/team"
	"salesdesk/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		sequence.Module,
		task.Client,
		security.Module,
		access.Module,
		health.Module,
		httpapi.Module,
		fx.Invoke(migrate),
		audit.Module,
		target.Module,
		lead.Module,
		user.Module,
		team.Module,
		report.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})

func migrate(conn *gorm.DB) error {
	return db.Migrate(conn,
		&user.User{},
		&team.Team{},
		&team.Member{},
		&target.Target{},
		&lead.Lead{},
		&audit.AuditLog{},
	)
}
