package audit

import (
	"context"
	"encoding/json"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/db/pagination"
	"salesdesk/pkg/errutil"
	applog "salesdesk/pkg/logger"
	"salesdesk/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends audit entries. It never fails the caller: a failed write
// is logged and reported as a nil entry.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, ev Event) *AuditLog
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time

	logs repository.Repository[AuditLog]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		now:  time.Now,
		logs: repository.ProvideStore[AuditLog](p.DB),
	}
}

// Record writes ev inside a savepoint of tx (or on its own when tx is nil),
// so a failed insert rolls back only itself and leaves the caller's
// transaction usable.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, ev Event) *AuditLog {
	log := applog.FromContext(ctx).With(
		zap.String("action", string(ev.Action)),
		zap.String("entity_id", ev.EntityID),
	)

	entityType, err := ev.Action.EntityType()
	if err != nil {
		log.Error("failed to log audit trail", zap.Error(err))
		return nil
	}

	details, err := json.Marshal(ev.Details)
	if err != nil {
		log.Error("failed to encode audit details", zap.Error(err))
		return nil
	}

	entry := &AuditLog{
		ID:         s.node.Generate(),
		Action:     ev.Action,
		EntityType: entityType,
		EntityID:   ev.EntityID,
		UserID:     ev.UserID,
		Details:    datatypes.JSON(details),
		Timestamp:  s.now().UTC(),
	}

	if client, ok := access.ClientFromContext(ctx); ok {
		if client.IPAddress != "" {
			entry.IPAddress = &client.IPAddress
		}
		if client.UserAgent != "" {
			entry.UserAgent = &client.UserAgent
		}
	}

	db := tx
	if db == nil {
		db = s.db
	}

	if err := db.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return s.logs.WithTrx(sp).Create(ctx, entry)
	}); err != nil {
		log.Error("failed to log audit trail", zap.Error(err))
		return nil
	}

	return entry
}

type ListResult struct {
	Logs     []*AuditLog         `json:"logs"`
	PageInfo pagination.PageInfo `json:"pagination"`
}

func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	query := &AuditLog{
		EntityID: req.EntityID,
	}

	if req.EntityType != "" {
		et := EntityType(req.EntityType)
		if !et.Valid() {
			return nil, errutil.BadRequest("invalid entityType", nil)
		}
		query.EntityType = et
	}

	if req.Action != "" {
		action := Action(req.Action)
		if _, err := action.EntityType(); err != nil {
			return nil, errutil.BadRequest("invalid action", nil)
		}
		query.Action = action
	}

	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize()

	total, err := s.logs.Count(ctx, query)
	if err != nil {
		zap.L().Error("failed to count audit logs", zap.Error(err))
		return nil, err
	}

	opts := append([]option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "timestamp", OrderBy: "desc", Allow: map[string]bool{"timestamp": true}}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc", Allow: map[string]bool{"id": true}}),
	}, page.Options()...)

	logs, err := s.logs.Find(ctx, query, opts...)
	if err != nil {
		zap.L().Error("failed to list audit logs", zap.Error(err))
		return nil, err
	}

	return &ListResult{
		Logs:     logs,
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

// Get returns the entry or nil when it does not exist.
func (s *Service) Get(ctx context.Context, id snowflake.ID) (*AuditLog, error) {
	if id == 0 {
		return nil, nil
	}
	return s.logs.FindOne(ctx, &AuditLog{ID: id})
}
