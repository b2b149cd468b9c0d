package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"salesdesk/pkg/config"
	"salesdesk/pkg/db"
	"salesdesk/pkg/gen"
	"salesdesk/pkg/logger"
	"salesdesk/pkg/otelcol"
	"salesdesk/pkg/profiling"
	"salesdesk/pkg/mongo"
	"salesdesk/pkg/redis"
	"salesdesk/pkg/task"
	"salesdesk/services/audit"
	"salesdesk/services/target"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		mongo.Module,
		gen.Module,
		task.Server,
		audit.TaskModule,
		target.TaskModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
