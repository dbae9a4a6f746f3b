package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketadmin/internal/apperr"
	"marketadmin/internal/docstore"
	"marketadmin/internal/logger"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

func newTestLog(now time.Time) (*Log, *docstore.Memory) {
	store := docstore.NewMemory()
	l := New(store, logger.Discard())
	l.now = func() time.Time { return now }
	return l, store
}

func TestAppendStampsActor(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l, store := newTestLog(now)
	admin := session.Admin{ID: "a1", Name: "Ayşe", Phone: "0151 12345678", Role: models.RoleAdmin}

	err := l.Append(context.Background(), admin, models.ActivityLog{
		Action:   "order.cancel",
		OrderID:  "o1",
		Category: models.CategoryOrder,
		Details:  map[string]any{"reason": "customer_request"},
	})
	require.NoError(t, err)

	docs, err := store.Find(context.Background(), docstore.Query{Collection: "activity_logs"})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var entry models.ActivityLog
	require.NoError(t, docstore.Decode(docs[0], &entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "a1", entry.ActorID)
	assert.Equal(t, "+4915112345678", entry.ActorPhone)
	assert.Equal(t, models.RoleAdmin, entry.ActorRole)
	assert.True(t, now.Equal(entry.CreatedAt))
	assert.Equal(t, "customer_request", entry.Details["reason"])
}

func TestAppendRequiresAction(t *testing.T) {
	l, _ := newTestLog(time.Now())
	err := l.Append(context.Background(), session.System, models.ActivityLog{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLog(now)

	ayse := session.Admin{ID: "a1", Name: "Ayşe", Phone: "+4915112345678", Role: models.RoleAdmin}
	mehmet := session.Admin{ID: "a2", Name: "Mehmet", Role: models.RoleBusinessOwner}

	// Записи с разными датами.
	l.now = func() time.Time { return now.AddDate(0, 0, -20) }
	require.NoError(t, l.Append(ctx, ayse, models.ActivityLog{Action: "sector.create", Category: models.CategorySector}))
	l.now = func() time.Time { return now.AddDate(0, 0, -3) }
	require.NoError(t, l.Append(ctx, mehmet, models.ActivityLog{Action: "order.confirm", OrderID: "o1", Category: models.CategoryOrder}))
	l.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, l.Append(ctx, ayse, models.ActivityLog{Action: "order.cancel", OrderID: "o1", Category: models.CategoryOrder}))
	l.now = func() time.Time { return now }

	all, err := l.List(ctx, Filter{Window: "all"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "order.cancel", all[0].Action)
	assert.Equal(t, "sector.create", all[2].Action)

	today, err := l.List(ctx, Filter{Window: "today"})
	require.NoError(t, err)
	require.Len(t, today, 1)

	week, err := l.List(ctx, Filter{Window: "7d"})
	require.NoError(t, err)
	assert.Len(t, week, 2)

	byPhone, err := l.List(ctx, Filter{Actor: "0049 151 12345678"})
	require.NoError(t, err)
	assert.Len(t, byPhone, 2)

	byID, err := l.List(ctx, Filter{Actor: "a2"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "order.confirm", byID[0].Action)

	byOrder, err := l.List(ctx, Filter{OrderID: "o1", Category: models.CategoryOrder, Window: "30d"})
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)

	_, err = l.List(ctx, Filter{Window: "1y"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	start, err := WindowStart("today", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)

	start, err = WindowStart("all", now)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
}
