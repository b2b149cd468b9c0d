package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/services/lead"
	"salesdesk/services/target"
	"salesdesk/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type teamMock struct {
	members map[snowflake.ID][]snowflake.ID
}

func (m *teamMock) TeamMemberIDs(ctx context.Context, managerID snowflake.ID) ([]snowflake.ID, error) {
	return append([]snowflake.ID(nil), m.members[managerID]...), nil
}

type summaryMock struct {
	summary target.Summary
}

func (m *summaryMock) Summary(ctx context.Context) (*target.Summary, error) {
	s := m.summary
	return &s, nil
}

var (
	admin   = &access.Principal{UserID: 1, Role: access.RoleAdmin}
	manager = &access.Principal{UserID: 2, Role: access.RoleManager}
	agent   = &access.Principal{UserID: 3, Role: access.RoleAgent}
	outside = &access.Principal{UserID: 4, Role: access.RoleAgent}

	now = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	db   *gorm.DB
	svc  *Service
	seq  int
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &lead.Lead{}, &target.Target{})
	return &fixture{
		db:   db,
		node: testutil.NewNode(t),
		svc: &Service{
			leads:   repository.ProvideStore[lead.Lead](db),
			targets: repository.ProvideStore[target.Target](db),
			team:    &teamMock{members: map[snowflake.ID][]snowflake.ID{manager.UserID: {agent.UserID}}},
			summary: &summaryMock{summary: target.Summary{
				Total:      decimal.NewFromInt(1000),
				Achieved:   decimal.NewFromInt(400),
				Remaining:  decimal.NewFromInt(600),
				Percentage: 40,
			}},
			loc: time.UTC,
			now: func() time.Time { return now },
		},
	}
}

func (f *fixture) seedLead(t *testing.T, name string, status lead.Status, assignee snowflake.ID, margin int64, createdAt time.Time) *lead.Lead {
	t.Helper()
	f.seq++
	l := &lead.Lead{
		ID:           f.node.Generate(),
		Code:         fmt.Sprintf("LD-%03d", f.seq),
		CustomerName: name,
		MobileNumber: fmt.Sprintf("+15550000%03d", f.seq),
		Status:       status,
		ProfitMargin: decimal.NewFromInt(margin),
		CreatedBy:    assignee,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if assignee != 0 {
		l.AssignedTo = &assignee
	}
	require.NoError(t, f.db.Create(l).Error)
	return l
}

func (f *fixture) seedTarget(t *testing.T, date time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&target.Target{
		ID:       f.node.Generate(),
		Date:     date,
		Amount:   decimal.NewFromInt(500),
		Achieved: decimal.Zero,
	}).Error)
}

func day(d int, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

// seed places leads across the team boundary and the default report window.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	f.seedLead(t, "Ana", lead.StatusNew, agent.UserID, 0, day(5, 10))
	f.seedLead(t, "Ben", lead.StatusSold, agent.UserID, 500, day(10, 10))
	f.seedLead(t, "Cai", lead.StatusSold, outside.UserID, 300, day(15, 10))
	f.seedLead(t, "Dee", lead.StatusLost, agent.UserID, 0, time.Date(2023, 12, 20, 10, 0, 0, 0, time.UTC))
	f.seedLead(t, "Eve", lead.StatusInProgress, 0, 0, day(20, 9))

	f.seedTarget(t, day(1, 0))
	f.seedTarget(t, day(12, 0))
	f.seedTarget(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
}

func requireStatus(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, status, be.Code)
}

func names(leads []*lead.Lead) []string {
	out := make([]string, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.CustomerName)
	}
	return out
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	cases := []struct {
		name string
		by   *access.Principal
		want [3]int64
	}{
		{"admin sees every lead", admin, [3]int64{5, 1, 2}},
		{"manager sees the team", manager, [3]int64{3, 1, 1}},
		{"agent sees own leads", agent, [3]int64{3, 1, 1}},
		{"agent outside the team", outside, [3]int64{1, 0, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats, err := f.svc.Dashboard(ctx, tc.by)
			require.NoError(t, err)
			require.Equal(t, tc.want, [3]int64{stats.TotalLeads, stats.NewLeads, stats.SoldLeads})
			require.EqualValues(t, 40, stats.TargetProgress)
			require.NotNil(t, stats.Target)
		})
	}

	_, err := f.svc.Dashboard(ctx, &access.Principal{UserID: 9, Role: "guest"})
	requireStatus(t, err, errutil.StatusForbidden)
}

func TestActivities(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	all, err := f.svc.Activities(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, ActivityLeadCreated, all[0].Type)
	require.Equal(t, "New lead created for Eve", all[0].Description)
	require.Equal(t, "3 hours ago", all[0].Time)
	require.Equal(t, "New lead created for Dee", all[4].Description)

	team, err := f.svc.Activities(ctx, manager)
	require.NoError(t, err)
	require.Len(t, team, 3)
	require.Equal(t, "New lead created for Ben", team[0].Description)
	require.Equal(t, agent.UserID, team[0].User)

	for i := 0; i < activityLimit+2; i++ {
		f.seedLead(t, fmt.Sprintf("Bulk %d", i), lead.StatusNew, agent.UserID, 0, day(18, i))
	}
	all, err = f.svc.Activities(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, activityLimit)
}

func TestReportDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	r, err := f.svc.Report(ctx, admin, Request{})
	require.NoError(t, err)
	require.Equal(t, day(1, 0), r.Period.From)
	require.Equal(t, now, r.Period.To)
	require.Equal(t, []string{"Eve", "Cai", "Ben", "Ana"}, names(r.Leads))
	require.Equal(t, []string{"Cai", "Ben"}, names(r.Sales))
	require.Len(t, r.Targets, 2)
	require.EqualValues(t, 4, r.Summary.TotalLeads)
	require.EqualValues(t, 2, r.Summary.TotalSales)
	require.True(t, decimal.NewFromInt(800).Equal(r.Summary.TotalRevenue))
	require.Equal(t, 50.0, r.Summary.ConversionRate)

	team, err := f.svc.Report(ctx, manager, Request{})
	require.NoError(t, err)
	require.Equal(t, []string{"Ben", "Ana"}, names(team.Leads))
	require.True(t, decimal.NewFromInt(500).Equal(team.Summary.TotalRevenue))
	require.Len(t, team.Targets, 2)
}

func TestReportPeriod(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	r, err := f.svc.Report(ctx, admin, Request{From: "2024-01-10", To: "2024-01-15"})
	require.NoError(t, err)
	require.Equal(t, []string{"Cai", "Ben"}, names(r.Leads))
	require.Equal(t, 100.0, r.Summary.ConversionRate)
	require.Len(t, r.Targets, 1)

	r, err = f.svc.Report(ctx, admin, Request{From: "2023-12-01", To: "2024-01-10"})
	require.NoError(t, err)
	require.EqualValues(t, 3, r.Summary.TotalLeads)
	require.Equal(t, 33.3, r.Summary.ConversionRate)

	r, err = f.svc.Report(ctx, admin, Request{From: "2022-01-01", To: "2022-01-31"})
	require.NoError(t, err)
	require.Empty(t, r.Leads)
	require.Empty(t, r.Sales)
	require.Zero(t, r.Summary.ConversionRate)
	require.True(t, r.Summary.TotalRevenue.IsZero())

	_, err = f.svc.Report(ctx, admin, Request{From: "nope"})
	requireStatus(t, err, errutil.StatusBadRequest)

	_, err = f.svc.Report(ctx, admin, Request{From: "2024-01-15", To: "2024-01-10"})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = f.svc.Report(ctx, &access.Principal{UserID: 9, Role: "guest"}, Request{})
	requireStatus(t, err, errutil.StatusForbidden)
}
