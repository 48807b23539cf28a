package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakanakfirat27/zeugma-realtime/internal/badge"
	"github.com/hakanakfirat27/zeugma-realtime/internal/dtos/chat_dto"
	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

type fakeBackend struct {
	feed chat_dto.GetNotificationsResponse

	failFetch  bool
	failMutate bool

	markReadCalls    []string
	markAllReadCalls int
	deleteCalls      []string
}

func (b *fakeBackend) GetNotifications(context.Context) (chat_dto.GetNotificationsResponse, *app_error.AppError) {
	if b.failFetch {
		return chat_dto.GetNotificationsResponse{}, app_error.NewRequestFailure(503, "backend busy")
	}
	return b.feed, nil
}

func (b *fakeBackend) MarkNotificationRead(_ context.Context, id string) *app_error.AppError {
	b.markReadCalls = append(b.markReadCalls, id)
	if b.failMutate {
		return app_error.NewRequestFailure(503, "backend busy")
	}
	return nil
}

func (b *fakeBackend) MarkAllNotificationsRead(context.Context) *app_error.AppError {
	b.markAllReadCalls++
	if b.failMutate {
		return app_error.NewRequestFailure(503, "backend busy")
	}
	return nil
}

func (b *fakeBackend) DeleteNotification(_ context.Context, id string) *app_error.AppError {
	b.deleteCalls = append(b.deleteCalls, id)
	if b.failMutate {
		return app_error.NewRequestFailure(503, "backend busy")
	}
	return nil
}

func notif(id string, read bool) entity.Notification {
	return entity.Notification{
		ID:        id,
		Title:     "Title " + id,
		Type:      entity.NotifTaskUpdate,
		IsRead:    read,
		CreatedAt: time.Now(),
	}
}

func newTestFeed(backend *fakeBackend) (*Feed, *badge.Aggregator) {
	agg := badge.NewAggregator()
	return NewFeed(backend, agg), agg
}

func TestRefreshReplacesListAndPushesBadge(t *testing.T) {
	backend := &fakeBackend{feed: chat_dto.GetNotificationsResponse{
		Notifications: []entity.Notification{notif("n-1", false), notif("n-2", true)},
		UnreadCount:   1,
	}}
	f, agg := newTestFeed(backend)

	require.Nil(t, f.Refresh(context.Background()))

	assert.Len(t, f.Notifications(), 2)
	assert.Equal(t, 1, f.UnreadCount())
	assert.Equal(t, 1, agg.Total())
}

func TestRefreshFailureKeepsCurrentList(t *testing.T) {
	backend := &fakeBackend{feed: chat_dto.GetNotificationsResponse{
		Notifications: []entity.Notification{notif("n-1", false)},
	}}
	f, agg := newTestFeed(backend)
	require.Nil(t, f.Refresh(context.Background()))

	backend.failFetch = true
	err := f.Refresh(context.Background())
	require.NotNil(t, err)

	assert.Len(t, f.Notifications(), 1, "a failed fetch never wipes the feed")
	assert.Equal(t, 1, agg.Total())
}

func TestRefreshCanceledContextDiscardsResult(t *testing.T) {
	backend := &fakeBackend{feed: chat_dto.GetNotificationsResponse{
		Notifications: []entity.Notification{notif("n-1", false)},
	}}
	f, _ := newTestFeed(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Nil(t, f.Refresh(ctx))
	assert.Empty(t, f.Notifications())
}

func TestOnArrivedPrependsAndDeduplicates(t *testing.T) {
	f, agg := newTestFeed(&fakeBackend{})

	f.OnArrived(notif("n-1", false))
	f.OnArrived(notif("n-2", false))
	f.OnArrived(notif("n-1", false)) // push duplicate of an id already held

	items := f.Notifications()
	require.Len(t, items, 2)
	assert.Equal(t, "n-2", items[0].ID, "newest first")
	assert.Equal(t, 2, agg.Total())
}

func TestMarkReadOptimisticWithRevert(t *testing.T) {
	backend := &fakeBackend{}
	f, agg := newTestFeed(backend)
	f.OnArrived(notif("n-1", false))

	require.Nil(t, f.MarkRead(context.Background(), "n-1"))
	assert.Zero(t, f.UnreadCount())
	assert.Zero(t, agg.Total())
	assert.Equal(t, []string{"n-1"}, backend.markReadCalls)

	// already read, no second call
	require.Nil(t, f.MarkRead(context.Background(), "n-1"))
	assert.Len(t, backend.markReadCalls, 1)
}

func TestMarkReadFailureReverts(t *testing.T) {
	backend := &fakeBackend{failMutate: true}
	f, agg := newTestFeed(backend)
	f.OnArrived(notif("n-1", false))

	err := f.MarkRead(context.Background(), "n-1")
	require.NotNil(t, err)

	assert.Equal(t, 1, f.UnreadCount(), "optimistic flag reverted")
	assert.Equal(t, 1, agg.Total())
}

func TestMarkAllReadFailureRestoresPriorUnreadSet(t *testing.T) {
	backend := &fakeBackend{failMutate: true}
	f, _ := newTestFeed(backend)
	f.OnArrived(notif("n-1", false))
	f.OnArrived(notif("n-2", true))
	f.OnArrived(notif("n-3", false))

	err := f.MarkAllRead(context.Background())
	require.NotNil(t, err)

	byID := map[string]bool{}
	for _, n := range f.Notifications() {
		byID[n.ID] = n.IsRead
	}
	assert.False(t, byID["n-1"])
	assert.True(t, byID["n-2"], "already-read entries stay read after the revert")
	assert.False(t, byID["n-3"])
}

func TestMarkAllReadSkipsBackendWhenNothingUnread(t *testing.T) {
	backend := &fakeBackend{}
	f, _ := newTestFeed(backend)
	f.OnArrived(notif("n-1", true))

	require.Nil(t, f.MarkAllRead(context.Background()))
	assert.Zero(t, backend.markAllReadCalls)
}

func TestDeleteOptimisticWithReinsertOnFailure(t *testing.T) {
	backend := &fakeBackend{failMutate: true}
	f, _ := newTestFeed(backend)
	f.OnArrived(notif("n-1", false))
	f.OnArrived(notif("n-2", false))

	err := f.Delete(context.Background(), "n-1")
	require.NotNil(t, err)

	items := f.Notifications()
	require.Len(t, items, 2, "failed delete reinserts")
	assert.Equal(t, "n-2", items[0].ID)
	assert.Equal(t, "n-1", items[1].ID, "reinserted at its old position")
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	f, _ := newTestFeed(backend)

	require.Nil(t, f.Delete(context.Background(), "ghost"))
	assert.Empty(t, backend.deleteCalls)
}
