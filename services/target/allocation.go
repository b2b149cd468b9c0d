package target

import (
	"context"
	"fmt"
	"time"

	"salesdesk/pkg/config"
	"salesdesk/pkg/db/option"
	applog "salesdesk/pkg/logger"
	"salesdesk/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const overflowDescription = "Auto-created from excess profit"

// Engine moves profit in and out of the target ledger. Both directions run
// on the caller's transaction and lock the rows they read.
type Engine struct {
	node *snowflake.Node
	loc  *time.Location
	now  func() time.Time

	targets repository.Repository[Target]
}

type EngineParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		node:    p.Node,
		loc:     p.Config.Location(),
		now:     time.Now,
		targets: repository.ProvideStore[Target](p.DB),
	}
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

var (
	fifoOrder = []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "date", OrderBy: "asc", Allow: map[string]bool{"date": true}}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "asc", Allow: map[string]bool{"id": true}}),
	}
	lifoOrder = []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "date", OrderBy: "desc", Allow: map[string]bool{"date": true}}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc", Allow: map[string]bool{"id": true}}),
	}
)

// Allocate fills targets oldest first up to their capacity. Whatever is left
// goes to today's target, created on demand, which may end up over-filled.
// A non-positive profit is a successful no-op.
func (e *Engine) Allocate(ctx context.Context, tx *gorm.DB, profit decimal.Decimal, actingUserID snowflake.ID) (*AllocationResult, error) {
	profit = round(profit)
	result := &AllocationResult{
		UpdatedTargets: []Allocation{},
		TotalAllocated: decimal.Zero,
	}
	if !profit.IsPositive() {
		return result, nil
	}

	log := applog.FromContext(ctx).With(zap.String("profit", profit.String()))
	repo := e.targets.WithTrx(tx)

	opts := append([]option.QueryOption{option.WithLockingUpdate()}, fifoOrder...)
	targets, err := repo.Find(ctx, nil, opts...)
	if err != nil {
		log.Error("failed to load targets", zap.Error(err))
		return nil, fmt.Errorf("load targets: %w", err)
	}

	now := e.now()
	today := Midnight(now, e.loc)
	remaining := profit

	var todays *Target
	for _, t := range targets {
		if t.Date.Equal(today) {
			todays = t
		}
		if !remaining.IsPositive() {
			continue
		}

		capacity := round(t.Capacity())
		if !capacity.IsPositive() {
			continue
		}

		take := decimal.Min(remaining, capacity)
		alloc, err := e.fill(ctx, repo, t, take, now)
		if err != nil {
			log.Error("failed to update target", zap.String("target_id", t.ID.String()), zap.Error(err))
			return nil, err
		}

		result.UpdatedTargets = append(result.UpdatedTargets, alloc)
		remaining = round(remaining.Sub(take))
	}

	if remaining.IsPositive() {
		if todays != nil {
			alloc, err := e.fill(ctx, repo, todays, remaining, now)
			if err != nil {
				log.Error("failed to update today's target", zap.Error(err))
				return nil, err
			}
			alloc.IsExistingTarget = true
			result.UpdatedTargets = append(result.UpdatedTargets, alloc)
		} else {
			created := &Target{
				ID:          e.node.Generate(),
				Date:        today,
				Amount:      remaining,
				Achieved:    remaining,
				Description: overflowDescription,
				AutoCreated: true,
				CreatedBy:   actingUserID,
			}
			if err := repo.Create(ctx, created); err != nil {
				log.Error("failed to create overflow target", zap.Error(err))
				return nil, fmt.Errorf("create overflow target: %w", err)
			}
			result.UpdatedTargets = append(result.UpdatedTargets, Allocation{
				TargetID:         created.ID,
				TargetDate:       created.Date,
				Allocated:        remaining,
				PreviousAchieved: decimal.Zero,
				NewAchieved:      remaining,
				TargetAmount:     remaining,
				IsComplete:       true,
				IsNewTarget:      true,
			})
		}
	}

	result.TotalAllocated = profit
	log.Info("profit allocated to targets", zap.Int("targets", len(result.UpdatedTargets)))

	return result, nil
}

// fill adds amount to t, persists it and mirrors the change on t.
func (e *Engine) fill(ctx context.Context, repo repository.Repository[Target], t *Target, amount decimal.Decimal, now time.Time) (Allocation, error) {
	previous := t.Achieved
	next := round(previous.Add(amount))

	if err := repo.Update(ctx, t.ID, map[string]any{
		"achieved":   next,
		"updated_at": now,
	}); err != nil {
		return Allocation{}, fmt.Errorf("update target %s: %w", t.ID, err)
	}

	t.Achieved = next
	t.UpdatedAt = now

	return Allocation{
		TargetID:         t.ID,
		TargetDate:       t.Date,
		Allocated:        amount,
		PreviousAchieved: previous,
		NewAchieved:      next,
		TargetAmount:     t.Amount,
		IsComplete:       t.IsComplete(),
	}, nil
}

// Reverse drains achieved value newest target first. It never takes a target
// below zero; what cannot be drained is reported in RemainingToRemove.
func (e *Engine) Reverse(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, actingUserID snowflake.ID) (*ReversalResult, error) {
	amount = round(amount)
	result := &ReversalResult{
		UpdatedTargets:    []Removal{},
		TotalRemoved:      decimal.Zero,
		RemainingToRemove: decimal.Zero,
	}
	if !amount.IsPositive() {
		return result, nil
	}

	log := applog.FromContext(ctx).With(
		zap.String("amount", amount.String()),
		zap.String("acting_user_id", actingUserID.String()),
	)
	repo := e.targets.WithTrx(tx)

	opts := append([]option.QueryOption{
		option.WithLockingUpdate(),
		option.ApplyOperator(option.Condition{Field: "achieved", Operator: option.GT, Value: 0}),
	}, lifoOrder...)
	targets, err := repo.Find(ctx, nil, opts...)
	if err != nil {
		log.Error("failed to load targets", zap.Error(err))
		return nil, fmt.Errorf("load targets: %w", err)
	}

	now := e.now()
	remaining := amount
	for _, t := range targets {
		if !remaining.IsPositive() {
			break
		}

		take := round(decimal.Min(remaining, t.Achieved))
		if !take.IsPositive() {
			continue
		}

		previous := t.Achieved
		next := round(previous.Sub(take))
		if err := repo.Update(ctx, t.ID, map[string]any{
			"achieved":   next,
			"updated_at": now,
		}); err != nil {
			log.Error("failed to update target", zap.String("target_id", t.ID.String()), zap.Error(err))
			return nil, fmt.Errorf("update target %s: %w", t.ID, err)
		}

		result.UpdatedTargets = append(result.UpdatedTargets, Removal{
			TargetID:         t.ID,
			TargetDate:       t.Date,
			Removed:          take,
			PreviousAchieved: previous,
			NewAchieved:      next,
		})
		result.TotalRemoved = round(result.TotalRemoved.Add(take))
		remaining = round(remaining.Sub(take))
	}

	result.RemainingToRemove = remaining
	if remaining.IsPositive() {
		log.Warn("reversal could not drain the full amount", zap.String("remaining", remaining.String()))
	}

	return result, nil
}
