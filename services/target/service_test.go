package target

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/services/audit"
	"salesdesk/services/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorderMock struct {
	events []audit.Event
}

func (m *recorderMock) Record(ctx context.Context, tx *gorm.DB, ev audit.Event) *audit.AuditLog {
	m.events = append(m.events, ev)
	return &audit.AuditLog{Action: ev.Action, EntityID: ev.EntityID}
}

// fakeStore is an in-memory summaryStore.
type fakeStore struct {
	data map[string]string
	gets atomic.Int32
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	f.gets.Add(1)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if b, ok := value.([]byte); ok {
		f.data[key] = string(b)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

var manager = &access.Principal{UserID: 7, Role: access.RoleManager}

func newTestService(t *testing.T, store summaryStore) (*Service, *recorderMock) {
	t.Helper()
	db := testutil.NewTestDB(t, &Target{})
	rec := &recorderMock{}
	return &Service{
		db:      db,
		node:    testutil.NewNode(t),
		loc:     time.UTC,
		targets: repository.ProvideStore[Target](db),
		audit:   rec,
		summary: NewSummaryCache(store, time.Minute),
	}, rec
}

func requireStatus(t *testing.T, err error, status errutil.CoreStatus) {
	t.Helper()
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, status, be.Code)
}

func TestCreate(t *testing.T) {
	svc, rec := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-01", Amount: dec("1000"), Description: "New year"})
	require.NoError(t, err)
	require.True(t, created.Date.Equal(jan1))
	requireDecimal(t, "0", created.Achieved)
	require.Equal(t, manager.UserID, created.CreatedBy)
	require.Len(t, rec.events, 1)
	require.Equal(t, audit.ActionTargetCreated, rec.events[0].Action)

	t.Run("duplicate date conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-01T10:00:00Z", Amount: dec("5")})
		requireStatus(t, err, errutil.StatusConflict)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-05", Amount: dec("-1")})
		requireStatus(t, err, errutil.StatusValidationFailed)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "yesterday", Amount: dec("1")})
		requireStatus(t, err, errutil.StatusBadRequest)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	svc, rec := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-01", Amount: dec("1000")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-02", Amount: dec("500")})
	require.NoError(t, err)

	amount := dec("1200")
	desc := "stretch"
	updated, err := svc.Update(ctx, manager, created.ID, UpdateTargetRequest{Amount: &amount, Description: &desc})
	require.NoError(t, err)
	requireDecimal(t, "1200", updated.Amount)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	requireDecimal(t, "1200", got.Amount)
	require.Equal(t, "stretch", got.Description)

	clash := "2024-01-02"
	_, err = svc.Update(ctx, manager, created.ID, UpdateTargetRequest{Date: &clash})
	requireStatus(t, err, errutil.StatusConflict)

	negative := dec("-5")
	_, err = svc.Update(ctx, manager, created.ID, UpdateTargetRequest{Achieved: &negative})
	requireStatus(t, err, errutil.StatusValidationFailed)

	_, err = svc.Update(ctx, manager, 12345, UpdateTargetRequest{Amount: &amount})
	requireStatus(t, err, errutil.StatusNotFound)

	require.NoError(t, svc.Delete(ctx, manager, created.ID))
	_, err = svc.Get(ctx, created.ID)
	requireStatus(t, err, errutil.StatusNotFound)
	requireStatus(t, svc.Delete(ctx, manager, created.ID), errutil.StatusNotFound)

	actions := make([]audit.Action, 0, len(rec.events))
	for _, ev := range rec.events {
		actions = append(actions, ev.Action)
	}
	require.Equal(t, []audit.Action{
		audit.ActionTargetCreated,
		audit.ActionTargetCreated,
		audit.ActionTargetUpdated,
		audit.ActionTargetDeleted,
	}, actions)
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-01"} {
		_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: d, Amount: dec("1")})
		require.NoError(t, err)
	}

	targets, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	require.True(t, targets[0].Date.Equal(jan3))
	require.True(t, targets[2].Date.Equal(jan1))
}

func TestSummarize(t *testing.T) {
	sum := summarize([]*Target{
		{Amount: dec("1000"), Achieved: dec("1000")},
		{Amount: dec("800"), Achieved: dec("200")},
		{Amount: dec("1200"), Achieved: dec("0.5")},
	})
	requireDecimal(t, "3000", sum.Total)
	requireDecimal(t, "1200.5", sum.Achieved)
	requireDecimal(t, "1799.5", sum.Remaining)
	require.Equal(t, int64(40), sum.Percentage)

	empty := summarize(nil)
	require.True(t, empty.Total.IsZero())
	require.Zero(t, empty.Percentage)
}

func TestSummary_ReadThroughCache(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-01", Amount: dec("1000"), Achieved: ptr(dec("250"))})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(25), sum.Percentage)
	require.Contains(t, store.data, "target:summary:all")

	// served from cache even after the table changes underneath
	require.NoError(t, svc.db.Model(&Target{}).Where("1 = 1").Update("achieved", 500).Error)
	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(25), sum.Percentage)

	refreshed, err := NewTask(svc).service.RefreshSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(50), refreshed.Percentage)

	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(50), sum.Percentage)

	// writes through the service drop the cached copy
	_, err = svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-02", Amount: dec("1000")})
	require.NoError(t, err)
	require.NotContains(t, store.data, "target:summary:all")
}

func TestSummary_CacheErrorFallsBackToDatabase(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("redis down")
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Create(ctx, manager, CreateTargetRequest{Date: "2024-01-01", Amount: dec("100"), Achieved: ptr(dec("100"))})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(100), sum.Percentage)
}

func TestHandleSummaryRefreshTask(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(t, store)

	task, err := NewSummaryRefreshTask()
	require.NoError(t, err)
	require.NoError(t, NewTask(svc).HandleSummaryRefreshTask(context.Background(), task))
	require.Contains(t, store.data, "target:summary:all")
}

func ptr[T any](v T) *T {
	return &v
}
