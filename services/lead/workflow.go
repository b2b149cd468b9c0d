package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesdesk/pkg/config"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/pkg/task"
	"salesdesk/services/audit"
	"salesdesk/services/target"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "salesdesk/lead"

var (
	errDuplicateMobile = errutil.Conflict("Mobile number already exists", nil)
	errStaleLead       = errutil.Conflict("Lead was modified by another request, reload and retry", nil)
)

// Allocator moves profit in and out of the target ledger inside the caller's
// transaction.
type Allocator interface {
	Allocate(ctx context.Context, tx *gorm.DB, profit decimal.Decimal, actingUserID snowflake.ID) (*target.AllocationResult, error)
	Reverse(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, actingUserID snowflake.ID) (*target.ReversalResult, error)
}

type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context)
}

type Workflow struct {
	db        *gorm.DB
	leads     repository.Repository[Lead]
	allocator Allocator
	audit     audit.Recorder
	summary   SummaryInvalidator
	enqueuer  task.Enqueuer
	timeout   time.Duration
}

type WorkflowParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Config
	Allocator Allocator
	Audit     audit.Recorder
	Summary   SummaryInvalidator `optional:"true"`
	Enqueuer  task.Enqueuer      `optional:"true"`
}

func NewWorkflow(p WorkflowParams) *Workflow {
	return &Workflow{
		db:        p.DB,
		leads:     repository.ProvideStore[Lead](p.DB),
		allocator: p.Allocator,
		audit:     p.Audit,
		summary:   p.Summary,
		enqueuer:  p.Enqueuer,
		timeout:   p.Config.Workflow.Timeout,
	}
}

// sameVersion reports whether the locked row is still the one the caller
// read. Every write to a lead bumps Version.
func sameVersion(current, seen *Lead) bool {
	if current.Status != seen.Status {
		return false
	}
	return seen.Version == 0 || current.Version == seen.Version
}

// DetectTransition classifies a status change by its effect on the ledger.
func DetectTransition(from, to Status) Transition {
	switch {
	case from != StatusSold && to == StatusSold:
		return TransitionSold
	case from == StatusSold && to != StatusSold:
		return TransitionUnsold
	default:
		return TransitionNone
	}
}

// ProcessStatusChange persists ch.Incoming and applies the ledger effect of
// the status change in one transaction. A sold lead that fails validation is
// rejected before anything is written. Once the transaction starts the
// caller's cancellation no longer applies, only the workflow timeout does.
func (w *Workflow) ProcessStatusChange(ctx context.Context, ch StatusChange) (*WorkflowResult, error) {
	if ch.Existing == nil || ch.Incoming == nil {
		return nil, errutil.BadRequest("lead change is incomplete", nil)
	}

	transition := DetectTransition(ch.Existing.Status, ch.Incoming.Status)
	result := &WorkflowResult{Transition: transition.String()}

	if ch.Incoming.Status == StatusSold {
		v := ValidateSoldLead(ch.SalePrice, ch.ProductPrice)
		if !v.IsValid {
			result.Errors = v.Errors
			details := make([]errutil.Detail, 0, len(v.Errors))
			for _, msg := range v.Errors {
				details = append(details, errutil.Detail{Field: "price", Message: msg})
			}
			observeRun(transition, "rejected")
			return result, errutil.ValidationFailed("Validation failed", nil, errutil.WithDetails(details...))
		}
	}

	ch.Incoming.ApplyProfitMargin()

	ctx = context.WithoutCancel(ctx)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "lead.ProcessStatusChange", trace.WithAttributes(
		attribute.String("lead.id", ch.LeadID.String()),
		attribute.String("lead.transition", transition.String()),
	))
	defer span.End()

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := w.leads.WithTrx(tx)

		current, err := repo.FindOne(ctx, &Lead{ID: ch.LeadID}, option.WithLockingUpdate())
		if err != nil {
			return fmt.Errorf("lock lead: %w", err)
		}
		if current == nil {
			return errLeadNotFound
		}
		// Incoming was built from Existing; any write since then would be
		// overwritten and the ledger effect derived from an old status or margin
		if !sameVersion(current, ch.Existing) {
			return errStaleLead
		}
		ch.Existing = current
		ch.Incoming.Version = current.Version + 1

		if err := repo.Save(ctx, ch.Incoming); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateMobile
			}
			return fmt.Errorf("update lead: %w", err)
		}

		switch transition {
		case TransitionSold:
			return w.applySale(ctx, tx, ch, result)
		case TransitionUnsold:
			return w.applyReversal(ctx, tx, ch, result)
		case TransitionNone:
			return nil
		default:
			return fmt.Errorf("unhandled transition %s", transition)
		}
	})
	if err != nil {
		observeRun(transition, "failed")
		span.SetStatus(codes.Error, err.Error())
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code != errutil.StatusInternal {
			return nil, err
		}
		zap.L().Error("lead workflow failed",
			zap.String("lead_id", ch.LeadID.String()),
			zap.Stringer("transition", transition),
			zap.Error(err),
		)
		return nil, errutil.Internal("Failed to update lead and targets", err)
	}

	result.Success = true
	result.Lead = ch.Incoming
	observeRun(transition, "committed")
	if result.Allocation != nil {
		observeProfit(profitAllocated, ch.Incoming.ProfitMargin)
	}
	if result.Reversal != nil {
		observeProfit(profitReversed, result.Reversal.TotalRemoved)
	}
	w.afterCommit(ctx, result)
	return result, nil
}

func (w *Workflow) applySale(ctx context.Context, tx *gorm.DB, ch StatusChange, result *WorkflowResult) error {
	profit := ch.Incoming.ProfitMargin
	if !profit.IsPositive() {
		return nil
	}

	alloc, err := w.allocator.Allocate(ctx, tx, profit, ch.ActingUserID)
	if err != nil {
		return fmt.Errorf("allocate profit: %w", err)
	}
	result.Allocation = alloc

	result.AuditLog = w.audit.Record(ctx, tx, audit.Event{
		Action:   audit.ActionLeadSold,
		EntityID: ch.LeadID.String(),
		UserID:   ch.ActingUserID,
		Details: map[string]any{
			"customerName":  ch.Incoming.CustomerName,
			"productName":   ch.Incoming.ProductName,
			"salePrice":     ch.Incoming.SalePrice,
			"productPrice":  ch.Incoming.ProductPrice,
			"profitMargin":  profit,
			"targetUpdates": alloc.UpdatedTargets,
		},
	})
	return nil
}

func (w *Workflow) applyReversal(ctx context.Context, tx *gorm.DB, ch StatusChange, result *WorkflowResult) error {
	profit := ch.Existing.ProfitMargin
	if !profit.IsPositive() {
		return nil
	}

	rev, err := w.allocator.Reverse(ctx, tx, profit, ch.ActingUserID)
	if err != nil {
		return fmt.Errorf("reverse profit: %w", err)
	}
	result.Reversal = rev

	result.AuditLog = w.audit.Record(ctx, tx, audit.Event{
		Action:   audit.ActionLeadStatusChanged,
		EntityID: ch.LeadID.String(),
		UserID:   ch.ActingUserID,
		Details: map[string]any{
			"previousStatus":    ch.Existing.Status,
			"newStatus":         ch.Incoming.Status,
			"profitRemoved":     profit,
			"remainingToRemove": rev.RemainingToRemove,
			"targetUpdates":     rev.UpdatedTargets,
		},
	})
	return nil
}

// afterCommit drops the cached summary and queues the summary refresh and
// audit archive. All of it is best effort, the committed change stands either
// way.
func (w *Workflow) afterCommit(ctx context.Context, result *WorkflowResult) {
	if w.summary != nil && (result.Allocation != nil || result.Reversal != nil) {
		w.summary.InvalidateSummary(ctx)
	}
	if w.enqueuer == nil {
		return
	}

	if result.Allocation != nil || result.Reversal != nil {
		if t, err := target.NewSummaryRefreshTask(); err == nil {
			if _, err := w.enqueuer.Enqueue(ctx, t); err != nil {
				zap.L().Warn("failed to enqueue target summary refresh", zap.Error(err))
			}
		}
	}

	if result.AuditLog != nil {
		if t, err := audit.NewArchiveTask(result.AuditLog); err == nil {
			if _, err := w.enqueuer.Enqueue(ctx, t); err != nil {
				zap.L().Warn("failed to enqueue audit archive", zap.Error(err))
			}
		}
	}
}
