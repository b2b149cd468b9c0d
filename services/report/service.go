package report

import (
	"context"
	"fmt"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/config"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/services/lead"
	"salesdesk/services/target"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TargetSummary reports overall progress against every target.
type TargetSummary interface {
	Summary(ctx context.Context) (*target.Summary, error)
}

type Service struct {
	leads   repository.Repository[lead.Lead]
	targets repository.Repository[target.Target]
	team    lead.TeamDirectory
	summary TargetSummary
	loc     *time.Location
	now     func() time.Time
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Config  *config.Config
	Team    lead.TeamDirectory
	Summary TargetSummary
}

func NewService(p ServiceParams) *Service {
	return &Service{
		leads:   repository.ProvideStore[lead.Lead](p.DB),
		targets: repository.ProvideStore[target.Target](p.DB),
		team:    p.Team,
		summary: p.Summary,
		loc:     p.Config.Location(),
		now:     time.Now,
	}
}

func (s *Service) scope(ctx context.Context, by *access.Principal) ([]option.QueryOption, error) {
	ids, err := lead.VisibleAssignees(ctx, s.team, by)
	if err != nil {
		return nil, err
	}
	return lead.AssigneeScope(ids), nil
}

// Dashboard counts the leads the principal can see. Target progress is
// company-wide.
func (s *Service) Dashboard(ctx context.Context, by *access.Principal) (*DashboardStats, error) {
	scope, err := s.scope(ctx, by)
	if err != nil {
		return nil, err
	}

	var stats DashboardStats
	counts := []struct {
		status lead.Status
		dst    *int64
	}{
		{"", &stats.TotalLeads},
		{lead.StatusNew, &stats.NewLeads},
		{lead.StatusSold, &stats.SoldLeads},
	}
	for _, c := range counts {
		n, err := s.leads.Count(ctx, &lead.Lead{Status: c.status}, scope...)
		if err != nil {
			zap.L().Error("failed to count leads", zap.String("status", string(c.status)), zap.Error(err))
			return nil, err
		}
		*c.dst = n
	}

	summary, err := s.summary.Summary(ctx)
	if err != nil {
		return nil, err
	}
	stats.Target = summary
	stats.TargetProgress = summary.Percentage
	return &stats, nil
}

// Activities lists the most recently created leads the principal can see.
func (s *Service) Activities(ctx context.Context, by *access.Principal) ([]Activity, error) {
	scope, err := s.scope(ctx, by)
	if err != nil {
		return nil, err
	}

	opts := append(scope,
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
		option.WithLimit(activityLimit),
	)
	leads, err := s.leads.Find(ctx, nil, opts...)
	if err != nil {
		zap.L().Error("failed to load recent leads", zap.Error(err))
		return nil, err
	}

	now := s.now()
	out := make([]Activity, 0, len(leads))
	for _, l := range leads {
		out = append(out, Activity{
			ID:          l.ID,
			Type:        ActivityLeadCreated,
			Description: fmt.Sprintf("New lead created for %s", l.CustomerName),
			Time:        humanize.RelTime(l.CreatedAt, now, "ago", "from now"),
			CreatedAt:   l.CreatedAt,
			User:        l.CreatedBy,
		})
	}
	return out, nil
}

// period resolves the report window. From defaults to the first of the
// current month and To to now. A date-only To covers that whole day.
func (s *Service) period(req Request) (Period, error) {
	now := s.now()
	var p Period

	if req.From == "" {
		y, m, _ := now.In(s.loc).Date()
		p.From = time.Date(y, m, 1, 0, 0, 0, 0, s.loc).UTC()
	} else {
		from, err := target.ParseDate(req.From, s.loc)
		if err != nil {
			return p, errutil.BadRequest("invalid from date", err)
		}
		p.From = from
	}

	if req.To == "" {
		p.To = now.UTC()
	} else {
		to, err := target.ParseDate(req.To, s.loc)
		if err != nil {
			return p, errutil.BadRequest("invalid to date", err)
		}
		p.To = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	if p.To.Before(p.From) {
		return p, errutil.ValidationFailed("invalid period", nil,
			errutil.WithDetails(errutil.Detail{Field: "to", Message: "To must not be before from"}))
	}
	return p, nil
}

func (s *Service) Report(ctx context.Context, by *access.Principal, req Request) (*Report, error) {
	p, err := s.period(req)
	if err != nil {
		return nil, err
	}
	scope, err := s.scope(ctx, by)
	if err != nil {
		return nil, err
	}

	opts := append(scope,
		option.ApplyOperator(
			option.Condition{Field: "created_at", Operator: option.GTE, Value: p.From},
			option.Condition{Field: "created_at", Operator: option.LTE, Value: p.To},
		),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
	)
	leads, err := s.leads.Find(ctx, nil, opts...)
	if err != nil {
		zap.L().Error("failed to load report leads", zap.Error(err))
		return nil, err
	}

	targets, err := s.targets.Find(ctx, nil,
		option.ApplyOperator(
			option.Condition{Field: "date", Operator: option.GTE, Value: p.From},
			option.Condition{Field: "date", Operator: option.LTE, Value: p.To},
		),
		option.WithSortBy(option.QuerySortBy{SortBy: "date", OrderBy: "asc"}),
	)
	if err != nil {
		zap.L().Error("failed to load report targets", zap.Error(err))
		return nil, err
	}

	sales := make([]*lead.Lead, 0)
	revenue := decimal.Zero
	for _, l := range leads {
		if l.Status == lead.StatusSold {
			sales = append(sales, l)
			revenue = revenue.Add(l.ProfitMargin)
		}
	}

	return &Report{
		Period: p,
		Summary: Summary{
			TotalLeads:     int64(len(leads)),
			TotalSales:     int64(len(sales)),
			TotalRevenue:   revenue.Round(2),
			ConversionRate: conversionRate(len(sales), len(leads)),
		},
		Leads:   leads,
		Sales:   sales,
		Targets: targets,
	}, nil
}

// conversionRate is sales as a percentage of leads, to one decimal place.
func conversionRate(sales, leads int) float64 {
	if leads == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(sales)).
		Div(decimal.NewFromInt(int64(leads))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		Float64()
	return rate
}
