package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appmongo "salesdesk/pkg/mongo"
	"salesdesk/pkg/task"
	"salesdesk/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Archiver copies committed audit entries to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, entry *AuditLog) error
}

type archiveDocument struct {
	ID         string         `bson:"_id"`
	Action     string         `bson:"action"`
	EntityType string         `bson:"entityType"`
	EntityID   string         `bson:"entityId"`
	UserID     string         `bson:"userId"`
	Details    map[string]any `bson:"details"`
	Timestamp  time.Time      `bson:"timestamp"`
	IPAddress  *string        `bson:"ipAddress"`
	UserAgent  *string        `bson:"userAgent"`
}

func toArchiveDocument(entry *AuditLog) (*archiveDocument, error) {
	details := map[string]any{}
	if len(entry.Details) > 0 && string(entry.Details) != "null" {
		if err := json.Unmarshal(entry.Details, &details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}

	return &archiveDocument{
		ID:         entry.ID.String(),
		Action:     string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		UserID:     entry.UserID.String(),
		Details:    details,
		Timestamp:  entry.Timestamp,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	}, nil
}

type mongoArchiver struct {
	collection *mongo.Collection
}

func NewMongoArchiver(db *mongo.Database) Archiver {
	return &mongoArchiver{collection: db.Collection(appmongo.CollectionAuditLogs)}
}

// Archive upserts by id so task retries never duplicate a document.
func (a *mongoArchiver) Archive(ctx context.Context, entry *AuditLog) error {
	doc, err := toArchiveDocument(entry)
	if err != nil {
		return err
	}

	_, err = a.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// NewArchiveTask builds the audit:archive task for a committed entry.
func NewArchiveTask(entry *AuditLog) (*asynq.Task, error) {
	return task.NewJSONTask(taskname.AuditArchive, ArchivePayload{AuditLogID: entry.ID.String()},
		asynq.Queue(task.QueueLow), asynq.MaxRetry(5))
}

type Task struct {
	service  *Service
	archiver Archiver
}

type TaskParams struct {
	fx.In
	Service *Service
	Mongo   *mongo.Database `optional:"true"`
}

func NewTask(p TaskParams) *Task {
	t := &Task{service: p.Service}
	if p.Mongo != nil {
		t.archiver = NewMongoArchiver(p.Mongo)
	}
	return t
}

func (t *Task) HandleArchiveTask(ctx context.Context, at *asynq.Task) error {
	var payload ArchivePayload
	if err := task.DecodePayload(at, &payload); err != nil {
		return err
	}

	log := zap.L().With(zap.String("audit_log_id", payload.AuditLogID))

	if t.archiver == nil {
		log.Debug("audit archive disabled, skipping")
		return nil
	}

	id, err := snowflake.ParseString(payload.AuditLogID)
	if err != nil {
		return fmt.Errorf("parse audit log id: %v: %w", err, asynq.SkipRetry)
	}

	entry, err := t.service.Get(ctx, id)
	if err != nil {
		log.Error("failed to load audit log", zap.Error(err))
		return err
	}

	if entry == nil {
		log.Warn("audit log not found, nothing to archive")
		return nil
	}

	if err := t.archiver.Archive(ctx, entry); err != nil {
		log.Error("failed to archive audit log", zap.Error(err))
		return err
	}

	log.Info("audit log archived")
	return nil
}
