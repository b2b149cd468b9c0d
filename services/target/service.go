package target

import (
	"context"
	"errors"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/config"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/pkg/task"
	"salesdesk/pkg/taskname"
	"salesdesk/services/audit"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errDuplicateDate = errutil.Conflict("Target for this date already exists", nil)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	loc  *time.Location

	targets repository.Repository[Target]
	audit   audit.Recorder
	summary *SummaryCache
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Audit  audit.Recorder
	Redis  *redis.Client `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	var store summaryStore
	if p.Redis != nil {
		store = p.Redis
	}

	return &Service{
		db:      p.DB,
		node:    p.Node,
		loc:     p.Config.Location(),
		targets: repository.ProvideStore[Target](p.DB),
		audit:   p.Audit,
		summary: NewSummaryCache(store, p.Config.Summary.CacheTTL),
	}
}

func (s *Service) List(ctx context.Context) ([]*Target, error) {
	targets, err := s.targets.Find(ctx, nil, lifoOrder...)
	if err != nil {
		zap.L().Error("failed to list targets", zap.Error(err))
		return nil, err
	}
	return targets, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*Target, error) {
	if id == 0 {
		return nil, errutil.NotFound("Target not found", nil)
	}

	t, err := s.targets.FindOne(ctx, &Target{ID: id})
	if err != nil {
		zap.L().Error("failed to get target", zap.Error(err))
		return nil, err
	}
	if t == nil {
		return nil, errutil.NotFound("Target not found", nil)
	}
	return t, nil
}

func validateAmounts(amount decimal.Decimal, achieved decimal.Decimal) error {
	var details []errutil.Detail
	if amount.IsNegative() {
		details = append(details, errutil.Detail{Field: "amount", Message: "Amount must be 0 or greater"})
	}
	if achieved.IsNegative() {
		details = append(details, errutil.Detail{Field: "achieved", Message: "Achieved must be 0 or greater"})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid target", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s *Service) Create(ctx context.Context, by *access.Principal, req CreateTargetRequest) (*Target, error) {
	date, err := ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, errutil.BadRequest("invalid date", err)
	}

	achieved := decimal.Zero
	if req.Achieved != nil {
		achieved = *req.Achieved
	}

	if err := validateAmounts(req.Amount, achieved); err != nil {
		return nil, err
	}

	t := &Target{
		ID:          s.node.Generate(),
		Date:        date,
		Amount:      round(req.Amount),
		Achieved:    round(achieved),
		Description: req.Description,
		CreatedBy:   by.UserID,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.targets.WithTrx(tx)

		exist, err := repo.FindOne(ctx, &Target{Date: date})
		if err != nil {
			return err
		}
		if exist != nil {
			return errDuplicateDate
		}

		if err := repo.Create(ctx, t); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateDate
			}
			return err
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionTargetCreated,
			EntityID: t.ID.String(),
			UserID:   by.UserID,
			Details:  map[string]any{"date": t.Date, "amount": t.Amount, "achieved": t.Achieved},
		})
		return nil
	}); err != nil {
		if !errors.Is(err, errDuplicateDate) {
			zap.L().Error("failed to create target", zap.Error(err))
		}
		return nil, err
	}

	s.summary.Invalidate(ctx)
	return t, nil
}

func (s *Service) Update(ctx context.Context, by *access.Principal, id snowflake.ID, req UpdateTargetRequest) (*Target, error) {
	if id == 0 {
		return nil, errutil.NotFound("Target not found", nil)
	}

	var updated *Target
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.targets.WithTrx(tx)

		t, err := repo.FindOne(ctx, &Target{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("Target not found", nil)
		}

		changes := map[string]any{}
		if req.Date != nil {
			date, err := ParseDate(*req.Date, s.loc)
			if err != nil {
				return errutil.BadRequest("invalid date", err)
			}
			if !date.Equal(t.Date) {
				exist, err := repo.FindOne(ctx, &Target{Date: date})
				if err != nil {
					return err
				}
				if exist != nil {
					return errDuplicateDate
				}
				t.Date = date
				changes["date"] = date
			}
		}
		if req.Amount != nil {
			t.Amount = round(*req.Amount)
			changes["amount"] = t.Amount
		}
		if req.Achieved != nil {
			t.Achieved = round(*req.Achieved)
			changes["achieved"] = t.Achieved
		}
		if req.Description != nil {
			t.Description = *req.Description
			changes["description"] = t.Description
		}

		if err := validateAmounts(t.Amount, t.Achieved); err != nil {
			return err
		}

		if len(changes) > 0 {
			if err := repo.Update(ctx, t.ID, changes); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errDuplicateDate
				}
				return err
			}
			s.audit.Record(ctx, tx, audit.Event{
				Action:   audit.ActionTargetUpdated,
				EntityID: t.ID.String(),
				UserID:   by.UserID,
				Details:  changes,
			})
		}

		updated = t
		return nil
	}); err != nil {
		return nil, err
	}

	s.summary.Invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, by *access.Principal, id snowflake.ID) error {
	if id == 0 {
		return errutil.NotFound("Target not found", nil)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		deleted, err := s.targets.WithTrx(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return errutil.NotFound("Target not found", nil)
		}

		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionTargetDeleted,
			EntityID: id.String(),
			UserID:   by.UserID,
		})
		return nil
	}); err != nil {
		return err
	}

	s.summary.Invalidate(ctx)
	return nil
}

// Summary aggregates every target: total, achieved, remaining and the
// achieved percentage rounded to a whole number.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.summary.Get(ctx, s.computeSummary)
}

func (s *Service) computeSummary(ctx context.Context) (*Summary, error) {
	targets, err := s.targets.Find(ctx, nil)
	if err != nil {
		zap.L().Error("failed to load targets for summary", zap.Error(err))
		return nil, err
	}
	return summarize(targets), nil
}

func summarize(targets []*Target) *Summary {
	total, achieved := decimal.Zero, decimal.Zero
	for _, t := range targets {
		total = total.Add(t.Amount)
		achieved = achieved.Add(t.Achieved)
	}

	var pct int64
	if total.IsPositive() {
		pct = achieved.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	}

	return &Summary{
		Total:      round(total),
		Achieved:   round(achieved),
		Remaining:  round(total.Sub(achieved)),
		Percentage: pct,
	}
}

// InvalidateSummary drops the cached summary after ledger writes made outside
// this service.
func (s *Service) InvalidateSummary(ctx context.Context) {
	s.summary.Invalidate(ctx)
}

// RefreshSummary recomputes the summary and overwrites the cached copy.
func (s *Service) RefreshSummary(ctx context.Context) (*Summary, error) {
	sum, err := s.computeSummary(ctx)
	if err != nil {
		return nil, err
	}
	s.summary.Set(ctx, sum)
	return sum, nil
}

// NewSummaryRefreshTask builds the target:summary:refresh task. Unique keeps
// a burst of sales from queueing one refresh each.
func NewSummaryRefreshTask() (*asynq.Task, error) {
	return task.NewJSONTask(taskname.TargetSummaryRefresh, struct{}{},
		asynq.Queue(task.QueueDefault), asynq.Unique(10*time.Second), asynq.MaxRetry(3))
}

type Task struct {
	service *Service
}

func NewTask(service *Service) *Task {
	return &Task{service: service}
}

func (t *Task) HandleSummaryRefreshTask(ctx context.Context, _ *asynq.Task) error {
	sum, err := t.service.RefreshSummary(ctx)
	if err != nil {
		zap.L().Error("failed to refresh target summary", zap.Error(err))
		return err
	}
	zap.L().Info("target summary refreshed",
		zap.String("total", sum.Total.String()),
		zap.String("achieved", sum.Achieved.String()),
		zap.Int64("percentage", sum.Percentage),
	)
	return nil
}
