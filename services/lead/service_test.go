package lead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/services/audit"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
)

var (
	admin   = &access.Principal{UserID: 1, Role: access.RoleAdmin}
	manager = &access.Principal{UserID: 2, Role: access.RoleManager}
	agent   = &access.Principal{UserID: 3, Role: access.RoleAgent}
	other   = &access.Principal{UserID: 4, Role: access.RoleAgent}
)

type teamMock struct {
	members map[snowflake.ID][]snowflake.ID
}

func (m *teamMock) TeamMemberIDs(ctx context.Context, managerID snowflake.ID) ([]snowflake.ID, error) {
	return append([]snowflake.ID(nil), m.members[managerID]...), nil
}

type sequenceMock struct {
	n   int
	err error
}

func (m *sequenceMock) NextLeadCode(ctx context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.n++
	return fmt.Sprintf("LD-240110-%03d", m.n), nil
}

type serviceFixture struct {
	*workflowFixture
	svc *Service
	seq *sequenceMock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	wf := newWorkflowFixture(t)
	seq := &sequenceMock{}
	svc := &Service{
		db:       wf.db,
		node:     wf.node,
		leads:    repository.ProvideStore[Lead](wf.db),
		seq:      seq,
		team:     &teamMock{members: map[snowflake.ID][]snowflake.ID{manager.UserID: {agent.UserID}}},
		audit:    audit.NewService(audit.ServiceParams{DB: wf.db, Node: wf.node}),
		workflow: wf.workflow,
		now:      func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) },
	}
	return &serviceFixture{workflowFixture: wf, svc: svc, seq: seq}
}

func input(t *testing.T, body string) LeadInput {
	t.Helper()
	var in LeadInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func TestCreate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Ada","mobileNumber":"0800","productName":"Solar kit","salePrice":1500,"productPrice":"1000"}`))
	require.NoError(t, err)
	require.Equal(t, "LD-240110-001", l.Code)
	require.Equal(t, StatusNew, l.Status)
	require.Equal(t, agent.UserID, *l.AssignedTo)
	require.Equal(t, agent.UserID, l.CreatedBy)
	requireDecimal(t, "500", l.ProfitMargin)
	require.Equal(t, []audit.Action{audit.ActionLeadCreated}, f.auditActions(t))

	t.Run("duplicate mobile", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin, input(t, `{"customerName":"Bob","mobileNumber":"0800"}`))
		requireStatus(t, err, errutil.StatusConflict)
	})

	t.Run("unassigned", func(t *testing.T) {
		l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Cy","mobileNumber":"0801","assignedTo":"unassigned"}`))
		require.NoError(t, err)
		require.Nil(t, l.AssignedTo)
	})

	t.Run("admin keeps lead unassigned by default", func(t *testing.T) {
		l, err := f.svc.Create(ctx, admin, input(t, `{"customerName":"Di","mobileNumber":"0802"}`))
		require.NoError(t, err)
		require.Nil(t, l.AssignedTo)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin, input(t, `{"customerName":" "}`))
		requireStatus(t, err, errutil.StatusValidationFailed)
	})

	t.Run("bad price", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin, input(t, `{"customerName":"Ed","mobileNumber":"0803","salePrice":"lots"}`))
		requireStatus(t, err, errutil.StatusValidationFailed)
	})

	t.Run("sequence unavailable", func(t *testing.T) {
		f.seq.err = errors.New("redis down")
		defer func() { f.seq.err = nil }()
		_, err := f.svc.Create(ctx, admin, input(t, `{"customerName":"Fi","mobileNumber":"0804"}`))
		requireStatus(t, err, errutil.StatusServiceUnavailable)
	})
}

func TestList_ScopedByRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	create := func(by *access.Principal, mobile, assignee string) {
		body := fmt.Sprintf(`{"customerName":"c-%s","mobileNumber":%q,"assignedTo":%q}`, mobile, mobile, assignee)
		_, err := f.svc.Create(ctx, by, input(t, body))
		require.NoError(t, err)
	}
	create(admin, "1", agent.UserID.String())
	create(admin, "2", agent.UserID.String())
	create(admin, "3", other.UserID.String())
	create(admin, "4", manager.UserID.String())
	create(admin, "5", "unassigned")

	tests := []struct {
		by   *access.Principal
		want int64
	}{
		{admin, 5},
		{manager, 3},
		{agent, 2},
		{other, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.by.Role)+"-"+tt.by.UserID.String(), func(t *testing.T) {
			res, err := f.svc.List(ctx, tt.by, ListRequest{})
			require.NoError(t, err)
			require.Equal(t, tt.want, res.PageInfo.Total)
			require.Len(t, res.Leads, int(tt.want))
		})
	}

	res, err := f.svc.List(ctx, admin, ListRequest{Limit: 2, Page: 1})
	require.NoError(t, err)
	require.Len(t, res.Leads, 2)
	require.Equal(t, "5", res.Leads[0].MobileNumber)

	_, err = f.svc.List(ctx, admin, ListRequest{Status: "won"})
	requireStatus(t, err, errutil.StatusBadRequest)
}

func TestGet_HidesOtherAgentsLeads(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Ada","mobileNumber":"0800"}`))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, agent, l.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, manager, l.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, other, l.ID)
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestUpdate_RunsWorkflow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedTarget(t, jan1, "1000", "0")

	l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Ada","mobileNumber":"0800","salePrice":900,"productPrice":600}`))
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, agent, l.ID, input(t, `{"status":"sold"}`))
	require.NoError(t, err)
	require.Equal(t, "sold", res.Transition)
	requireDecimal(t, "300", f.targets(t)[0].Achieved)

	// the gate sees the price a sold update submits
	_, err = f.svc.Update(ctx, agent, l.ID, input(t, `{"salePrice":0}`))
	requireStatus(t, err, errutil.StatusValidationFailed)

	res, err = f.svc.Update(ctx, agent, l.ID, input(t, `{"status":"lost","customerName":"Ada L."}`))
	require.NoError(t, err)
	require.Equal(t, "unsold", res.Transition)
	require.Equal(t, "Ada L.", f.lead(t, l.ID).CustomerName)
	requireDecimal(t, "0", f.targets(t)[0].Achieved)

	_, err = f.svc.Update(ctx, agent, l.ID, input(t, `{"status":"won"}`))
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = f.svc.Update(ctx, agent, 12345, input(t, `{"status":"lost"}`))
	requireStatus(t, err, errutil.StatusNotFound)
}

func TestUpdate_AgentRestrictions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Ada","mobileNumber":"0800"}`))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, other, l.ID, input(t, `{"status":"in-progress"}`))
	requireStatus(t, err, errutil.StatusForbidden)

	_, err = f.svc.Update(ctx, agent, l.ID, input(t, fmt.Sprintf(`{"assignedTo":%q}`, other.UserID.String())))
	requireStatus(t, err, errutil.StatusForbidden)

	_, err = f.svc.Update(ctx, manager, l.ID, input(t, fmt.Sprintf(`{"assignedTo":%q}`, other.UserID.String())))
	require.NoError(t, err)
	require.Equal(t, other.UserID, *f.lead(t, l.ID).AssignedTo)
}

func TestDelete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, admin, input(t, `{"customerName":"Ada","mobileNumber":"0800"}`))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, admin, l.ID))
	requireStatus(t, f.svc.Delete(ctx, admin, l.ID), errutil.StatusNotFound)
	require.Equal(t, []audit.Action{audit.ActionLeadCreated, audit.ActionLeadDeleted}, f.auditActions(t))
}

func TestAddNote(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, agent, input(t, `{"customerName":"Ada","mobileNumber":"0800"}`))
	require.NoError(t, err)

	_, err = f.svc.AddNote(ctx, agent, l.ID, AddNoteRequest{Content: "called, wants a quote"})
	require.NoError(t, err)
	updated, err := f.svc.AddNote(ctx, agent, l.ID, AddNoteRequest{Content: "quote sent"})
	require.NoError(t, err)
	require.Len(t, updated.Notes, 2)

	stored := f.lead(t, l.ID)
	require.Len(t, stored.Notes, 2)
	require.Equal(t, "quote sent", stored.Notes[1].Content)
	require.Equal(t, agent.UserID, stored.Notes[1].CreatedBy)

	_, err = f.svc.AddNote(ctx, agent, l.ID, AddNoteRequest{Content: "  "})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = f.svc.AddNote(ctx, other, l.ID, AddNoteRequest{Content: "hi"})
	requireStatus(t, err, errutil.StatusNotFound)
}
