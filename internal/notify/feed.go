package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/badge"
	"github.com/hakanakfirat27/zeugma-realtime/internal/dtos/chat_dto"
	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

// BadgeSource is the feed's source id in the unread badge aggregator.
const BadgeSource = "notifications"

// Backend is the REST surface the feed consumes.
type Backend interface {
	GetNotifications(ctx context.Context) (chat_dto.GetNotificationsResponse, *app_error.AppError)
	MarkNotificationRead(ctx context.Context, id string) *app_error.AppError
	MarkAllNotificationsRead(ctx context.Context) *app_error.AppError
	DeleteNotification(ctx context.Context, id string) *app_error.AppError
}

// Feed holds the notification list, fed by the global WebSocket target and
// reconciled against REST fetches (last fetch wins). User actions apply
// optimistically and revert on request failure.
type Feed struct {
	backend Backend
	badge   *badge.Aggregator

	mu       sync.Mutex
	items    []entity.Notification
	onChange func([]entity.Notification)
}

func NewFeed(backend Backend, agg *badge.Aggregator) *Feed {
	f := &Feed{backend: backend, badge: agg}
	agg.Set(BadgeSource, 0)
	return f
}

func (f *Feed) OnChange(fn func([]entity.Notification)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// OnArrived applies one push-delivered notification; duplicates by id are
// dropped since a REST refresh may already have brought it.
func (f *Feed) OnArrived(n entity.Notification) {
	f.mu.Lock()
	for _, cur := range f.items {
		if cur.ID == n.ID {
			f.mu.Unlock()
			return
		}
	}
	f.items = append([]entity.Notification{n}, f.items...)
	f.publishLocked()
}

// Refresh replaces the list with the authoritative fetch. A failed refresh
// keeps the current list untouched.
func (f *Feed) Refresh(ctx context.Context) *app_error.AppError {
	resp, err := f.backend.GetNotifications(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("notify: refresh failed, keeping current feed")
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	f.mu.Lock()
	f.items = resp.Notifications
	f.publishLocked()
	return nil
}

// MarkRead flags one notification optimistically and reverts if the server
// call fails.
func (f *Feed) MarkRead(ctx context.Context, id string) *app_error.AppError {
	if !f.setRead(id, true) {
		return nil
	}

	if err := f.backend.MarkNotificationRead(ctx, id); err != nil {
		f.setRead(id, false)
		return err
	}
	return nil
}

// MarkAllRead flags everything optimistically; a failure restores the exact
// prior unread set.
func (f *Feed) MarkAllRead(ctx context.Context) *app_error.AppError {
	f.mu.Lock()
	var wasUnread []string
	for i := range f.items {
		if !f.items[i].IsRead {
			wasUnread = append(wasUnread, f.items[i].ID)
			f.items[i].IsRead = true
		}
	}
	f.publishLocked()

	if len(wasUnread) == 0 {
		return nil
	}

	if err := f.backend.MarkAllNotificationsRead(ctx); err != nil {
		f.mu.Lock()
		unread := make(map[string]struct{}, len(wasUnread))
		for _, id := range wasUnread {
			unread[id] = struct{}{}
		}
		for i := range f.items {
			if _, ok := unread[f.items[i].ID]; ok {
				f.items[i].IsRead = false
			}
		}
		f.publishLocked()
		return err
	}
	return nil
}

// Delete removes one notification optimistically and reinserts on failure.
func (f *Feed) Delete(ctx context.Context, id string) *app_error.AppError {
	f.mu.Lock()
	pos := -1
	var removed entity.Notification
	for i, n := range f.items {
		if n.ID == id {
			pos, removed = i, n
			break
		}
	}
	if pos < 0 {
		f.mu.Unlock()
		return nil
	}
	f.items = append(f.items[:pos], f.items[pos+1:]...)
	f.publishLocked()

	if err := f.backend.DeleteNotification(ctx, id); err != nil {
		f.mu.Lock()
		if pos > len(f.items) {
			pos = len(f.items)
		}
		f.items = append(f.items[:pos], append([]entity.Notification{removed}, f.items[pos:]...)...)
		f.publishLocked()
		return err
	}
	return nil
}

// Notifications returns the current snapshot, newest first.
func (f *Feed) Notifications() []entity.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// UnreadCount is the feed's badge contribution.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreadLocked()
}

func (f *Feed) setRead(id string, read bool) bool {
	f.mu.Lock()
	for i := range f.items {
		if f.items[i].ID == id {
			if f.items[i].IsRead == read {
				break
			}
			f.items[i].IsRead = read
			f.publishLocked()
			return true
		}
	}
	f.mu.Unlock()
	return false
}

func (f *Feed) unreadLocked() int {
	n := 0
	for _, item := range f.items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// publishLocked pushes the unread count to the badge and fires the change
// callback. Callers hold the lock; it is released here.
func (f *Feed) publishLocked() {
	unread := f.unreadLocked()
	fn := f.onChange
	var snap []entity.Notification
	if fn != nil {
		snap = make([]entity.Notification, len(f.items))
		copy(snap, f.items)
	}
	f.mu.Unlock()

	f.badge.Set(BadgeSource, unread)
	if fn != nil {
		fn(snap)
	}
}
