package readstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	"github.com/hakanakfirat27/zeugma-realtime/internal/store"
)

// Acker performs the authoritative mark-room-read call.
type Acker interface {
	MarkRoomRead(ctx context.Context, roomID string) error
}

// Reconciler decides when the room's unread messages become read and tells
// the server exactly once per user-visible transition. Bursts of arriving
// messages collapse into a single in-flight call plus at most one follow-up;
// a failed call rolls back and is retried only on the next visibility
// transition, never in a loop.
//
// Per message the transitions are Unread -> PendingRead -> Read on ack, and
// PendingRead -> Unread on failure.
type Reconciler struct {
	roomID string
	selfID string
	store  *store.MessageStore
	acker  Acker

	// onUnread publishes the room's unread contribution after every change.
	onUnread func(count int)

	mu       sync.Mutex
	visible  bool
	inFlight bool
	dirty    bool
	failed   bool
}

func NewReconciler(roomID, selfID string, st *store.MessageStore, acker Acker, onUnread func(int)) *Reconciler {
	if onUnread == nil {
		onUnread = func(int) {}
	}
	return &Reconciler{
		roomID:   roomID,
		selfID:   selfID,
		store:    st,
		acker:    acker,
		onUnread: onUnread,
	}
}

// SetVisible records whether the room is the active, visible one. Becoming
// visible is a transition: it clears the failure latch and emits a mark-read
// intent if anything is unread.
func (r *Reconciler) SetVisible(ctx context.Context, visible bool) {
	r.mu.Lock()
	was := r.visible
	r.visible = visible
	if visible && !was {
		r.failed = false
	}
	r.mu.Unlock()

	if visible && !was {
		r.trigger(ctx)
	}
}

// OnMessage feeds an incoming message. A counterpart message arriving while
// the room is visible triggers a mark-read intent; bursts coalesce.
func (r *Reconciler) OnMessage(ctx context.Context, msg entity.Message) {
	r.onUnread(r.store.UnreadCount())

	if msg.Sender.ID == r.selfID {
		return
	}

	r.mu.Lock()
	visible := r.visible
	r.mu.Unlock()
	if visible {
		r.trigger(ctx)
	}
}

// Pending reports whether a mark-read call is in flight.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

func (r *Reconciler) trigger(ctx context.Context) {
	r.mu.Lock()
	if !r.visible || r.failed {
		r.mu.Unlock()
		return
	}
	if r.inFlight {
		r.dirty = true
		r.mu.Unlock()
		return
	}

	pending := r.store.UnreadFromCounterpart()
	if len(pending) == 0 {
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	r.mu.Unlock()

	go r.markRead(ctx, pending)
}

func (r *Reconciler) markRead(ctx context.Context, pending []string) {
	err := r.acker.MarkRoomRead(ctx, r.roomID)

	if ctx.Err() != nil {
		// the room was switched away mid-call; the response must not touch
		// this store anymore
		r.mu.Lock()
		r.inFlight = false
		r.dirty = false
		r.mu.Unlock()
		return
	}

	if err != nil {
		// roll back: the pending messages stay unread and the count goes
		// back to its pre-call value; next visibility transition retries
		r.store.MarkUnreadFromCounterpart(pending)
		r.mu.Lock()
		r.inFlight = false
		r.dirty = false
		r.failed = true
		r.mu.Unlock()

		r.onUnread(r.store.UnreadCount())
		log.Warn().Err(err).Str("roomID", r.roomID).Msg("readstate: mark-read failed, unread restored")
		return
	}

	r.store.MarkReadIDs(pending)
	r.mu.Lock()
	r.inFlight = false
	again := r.dirty
	r.dirty = false
	r.mu.Unlock()

	r.onUnread(r.store.UnreadCount())
	log.Debug().Str("roomID", r.roomID).Int("messages", len(pending)).Msg("readstate: room marked read")

	if again {
		r.trigger(ctx)
	}
}
