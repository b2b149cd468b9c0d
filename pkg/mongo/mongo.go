package mongo

import (
	"context"
	"fmt"

	"salesdesk/pkg/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const CollectionAuditLogs = "audit_logs"

var Module = fx.Module("mongo",
	fx.Provide(New),
)

// New connects to MONGO.URI and returns the configured database. An empty URI
// disables the document archive and yields a nil database.
func New(lc fx.Lifecycle, cfg *config.Config) (*mongo.Database, error) {
	if cfg.Mongo.URI == "" {
		zap.L().Warn("[MongoDB] MONGO_URI not set, audit archive disabled")
		return nil, nil
	}

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetTimeout(cfg.Mongo.Timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx, nil); err != nil {
				zap.L().Error("[MongoDB] ping failed", zap.Error(err))
				return err
			}
			zap.L().Info("[MongoDB] Connected", zap.String("database", cfg.Mongo.Database))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client.Database(cfg.Mongo.Database), nil
}
