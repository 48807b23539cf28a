package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/api"
	"github.com/hakanakfirat27/zeugma-realtime/internal/badge"
	"github.com/hakanakfirat27/zeugma-realtime/internal/connection"
	"github.com/hakanakfirat27/zeugma-realtime/internal/cursor"
	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
	"github.com/hakanakfirat27/zeugma-realtime/internal/identity"
	"github.com/hakanakfirat27/zeugma-realtime/internal/notify"
	"github.com/hakanakfirat27/zeugma-realtime/internal/roomlist"
)

const roomSourcePrefix = "room:"

// RoomSource is the badge source id for one room.
func RoomSource(roomID string) string {
	return roomSourcePrefix + roomID
}

// Options tune the engine's timing. Zero values take the production
// defaults; tests shrink them.
type Options struct {
	PollInterval  time.Duration
	SilentTimeout time.Duration
	TypingExpiry  time.Duration
	TypingIdle    time.Duration
	PageSize      int
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 15 * time.Second
	}
	if o.SilentTimeout <= 0 {
		o.SilentTimeout = 45 * time.Second
	}
	if o.TypingExpiry <= 0 {
		o.TypingExpiry = 3 * time.Second
	}
	if o.TypingIdle <= 0 {
		o.TypingIdle = time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = 30
	}
}

// Engine is the root of the sync core. It owns the connection manager, the
// REST client, the room list, the notification feed and the badge, and it
// runs the fixed-interval polling fallback that keeps everything correct
// when sockets go quiet.
type Engine struct {
	self    *identity.Identity
	api     *api.Client
	conns   *connection.Manager
	cursors cursor.Store
	opts    Options

	Badge *badge.Aggregator
	Feed  *notify.Feed
	rooms *roomlist.Synchronizer

	mu          sync.Mutex
	active      *RoomSession
	notifHandle *connection.Handle

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(self *identity.Identity, apiClient *api.Client, conns *connection.Manager, cursors cursor.Store, opts Options) *Engine {
	opts.withDefaults()
	if cursors == nil {
		cursors = cursor.NewMemoryStore()
	}

	agg := badge.NewAggregator()
	e := &Engine{
		self:    self,
		api:     apiClient,
		conns:   conns,
		cursors: cursors,
		opts:    opts,
		Badge:   agg,
		Feed:    notify.NewFeed(apiClient, agg),
		rooms:   roomlist.NewSynchronizer(),
	}

	// every room list change republishes the per-room badge sources; the
	// badge total can never drift from the room list
	e.rooms.OnChange(func(rooms []entity.Room) {
		for _, r := range rooms {
			agg.Set(RoomSource(r.ID), r.UnreadCount)
		}
	})

	// an optimistic badge clear schedules its authoritative correction
	agg.OnClear(func(sourceID string) {
		ctx := e.runningCtx()
		if ctx == nil {
			return
		}
		if sourceID == notify.BadgeSource {
			_ = e.Feed.Refresh(ctx)
			return
		}
		e.refreshRooms(ctx)
	})

	return e
}

// Start connects the global notification feed, primes state from REST and
// begins the polling loop. Runs until ctx is canceled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.ctx = ctx
	e.cancel = cancel
	e.mu.Unlock()

	h := e.conns.Open(ctx, connection.NotificationsTarget())
	e.mu.Lock()
	e.notifHandle = h
	e.mu.Unlock()
	go e.consumeNotifications(h)

	e.refreshRooms(ctx)
	if err := e.Feed.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("engine: initial notification fetch failed")
	}
	e.restoreCursors(ctx)

	go e.pollLoop(ctx)
	log.Info().Str("userID", e.self.User.ID).Msg("engine: sync started")
}

// Stop tears everything down.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	active := e.active
	e.active = nil
	e.mu.Unlock()

	if active != nil {
		active.close()
	}
	if cancel != nil {
		cancel()
	}
	e.conns.CloseAll()
	log.Info().Msg("engine: sync stopped")
}

// OpenRoom makes roomID the active conversation. The previous session's
// in-flight work is canceled so late responses cannot leak across rooms.
func (e *Engine) OpenRoom(roomID string) (*RoomSession, *app_error.AppError) {
	e.mu.Lock()
	ctx := e.ctx
	if ctx == nil || ctx.Err() != nil {
		e.mu.Unlock()
		return nil, app_error.NewAppError(500, "engine is not running", "engine")
	}
	prev := e.active
	if prev != nil && prev.roomID == roomID {
		e.mu.Unlock()
		return prev, nil
	}
	e.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	s := newRoomSession(ctx, e, roomID)
	e.mu.Lock()
	e.active = s
	e.mu.Unlock()

	e.rooms.Select(roomID)
	log.Info().Str("roomID", roomID).Msg("engine: room opened")
	return s, nil
}

// CloseActiveRoom leaves the current conversation.
func (e *Engine) CloseActiveRoom() {
	e.mu.Lock()
	active := e.active
	e.active = nil
	e.mu.Unlock()

	if active != nil {
		active.close()
		e.rooms.Select("")
	}
}

// ActiveSession returns the open conversation, if any.
func (e *Engine) ActiveSession() *RoomSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// StartConversation opens (or reuses) the room with a participant and makes
// it active.
func (e *Engine) StartConversation(participantID, subject string) (*RoomSession, *app_error.AppError) {
	ctx := e.runningCtx()
	if ctx == nil {
		return nil, app_error.NewAppError(500, "engine is not running", "engine")
	}

	room, err := e.api.CreateRoom(ctx, participantID, subject)
	if err != nil {
		return nil, err
	}
	e.rooms.Upsert(room)
	return e.OpenRoom(room.ID)
}

// CloseRoom soft-closes a conversation; it stays listed with its closed
// flag.
func (e *Engine) CloseRoom(roomID string) {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if active != nil && active.roomID == roomID {
		e.CloseActiveRoom()
	}
	e.rooms.CloseRoom(roomID)
}

// Rooms returns the ordered conversation list.
func (e *Engine) Rooms() []entity.Room {
	return e.rooms.Rooms()
}

// OpenChatList is the "user opened the chat list" action: the chat badge
// sources clear optimistically and the reconciling fetch corrects them.
func (e *Engine) OpenChatList() {
	for roomID := range e.rooms.UnreadByRoom() {
		e.Badge.Clear(RoomSource(roomID))
	}
}

func (e *Engine) consumeNotifications(h *connection.Handle) {
	for ev := range h.Events() {
		switch n := ev.(type) {
		case connection.NotificationArrived:
			e.Feed.OnArrived(n.Notification)
		case connection.ConnectionError:
			log.Warn().Err(n.Err).Msg("engine: notification socket lost, relying on polling")
		default:
			// room-scoped events are not delivered on the global feed
		}
	}
}

// pollLoop is the fixed-interval REST fallback. Either input path alone is
// sufficient for correctness; the merge rules keep both together from
// contradicting.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshRooms(ctx)
			if err := e.Feed.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("engine: notification refresh failed, retrying next tick")
			}

			e.mu.Lock()
			active := e.active
			e.mu.Unlock()
			if active != nil && active.handle.SilentFor() >= e.opts.SilentTimeout {
				active.poll()
			}
		}
	}
}

// refreshRooms merges the authoritative room listing; a failure keeps the
// current list and the next tick retries.
func (e *Engine) refreshRooms(ctx context.Context) {
	rooms, err := e.api.GetRooms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("engine: room refresh failed, keeping current list")
		return
	}
	if ctx.Err() != nil {
		return
	}
	e.rooms.ApplySnapshot(rooms)
}

// restoreCursors primes unread counts from the persisted cursors for rooms
// the first fetch has not covered yet.
func (e *Engine) restoreCursors(ctx context.Context) {
	for _, room := range e.rooms.Rooms() {
		if room.UnreadCount > 0 {
			continue
		}
		snap, err := e.cursors.Get(ctx, e.self.User.ID, room.ID)
		if err != nil || snap == nil {
			continue
		}
		if room.LastMessage != nil && room.LastMessage.ID != snap.LastSeenMessageID && snap.UnreadCount > 0 {
			e.rooms.SetUnread(room.ID, snap.UnreadCount)
		}
	}
}

func (e *Engine) runningCtx() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil || e.ctx.Err() != nil {
		return nil
	}
	return e.ctx
}

// EngineStats is the snapshot surfaced on the status API.
type EngineStats struct {
	UserID        string                  `json:"user_id"`
	ActiveRoom    string                  `json:"active_room,omitempty"`
	Rooms         int                     `json:"rooms"`
	BadgeTotal    int                     `json:"badge_total"`
	BadgeSources  map[string]int          `json:"badge_sources"`
	Notifications int                     `json:"unread_notifications"`
	Connections   connection.ManagerStats `json:"connections"`
	TypingNow     []string                `json:"typing_now,omitempty"`
}

func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()

	stats := EngineStats{
		UserID:        e.self.User.ID,
		Rooms:         len(e.rooms.Rooms()),
		BadgeTotal:    e.Badge.Total(),
		BadgeSources:  e.Badge.Snapshot(),
		Notifications: e.Feed.UnreadCount(),
		Connections:   e.conns.Stats(),
	}
	if active != nil {
		stats.ActiveRoom = active.roomID
		for _, t := range active.Typing.Typing() {
			stats.TypingNow = append(stats.TypingNow, t.DisplayName)
		}
	}
	return stats
}
