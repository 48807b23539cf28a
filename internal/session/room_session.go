package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/connection"
	"github.com/hakanakfirat27/zeugma-realtime/internal/cursor"
	"github.com/hakanakfirat27/zeugma-realtime/internal/dtos/chat_dto"
	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
	"github.com/hakanakfirat27/zeugma-realtime/internal/presence"
	"github.com/hakanakfirat27/zeugma-realtime/internal/readstate"
	"github.com/hakanakfirat27/zeugma-realtime/internal/store"
	"github.com/hakanakfirat27/zeugma-realtime/internal/typing"
)

// RoomSession is the live view of one open conversation: the message store,
// typing state, counterpart presence and read-state reconciliation wired to
// the room's event stream. Switching rooms cancels the session's context, so
// responses landing afterwards are discarded instead of corrupting the next
// room's state.
type RoomSession struct {
	roomID string
	engine *Engine

	Store    *store.MessageStore
	Typing   *typing.Aggregator
	Presence *presence.Tracker

	debounce   *typing.Debouncer
	reconciler *readstate.Reconciler
	handle     *connection.Handle

	ctx    context.Context
	cancel context.CancelFunc
}

func newRoomSession(parent context.Context, e *Engine, roomID string) *RoomSession {
	ctx, cancel := context.WithCancel(parent)

	s := &RoomSession{
		roomID:   roomID,
		engine:   e,
		Store:    store.NewMessageStore(roomID, e.self.User.ID, e.api),
		Typing:   typing.NewAggregator(e.opts.TypingExpiry),
		Presence: presence.NewTracker(),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.debounce = typing.NewDebouncer(e.opts.TypingIdle, s.sendTyping)
	s.reconciler = readstate.NewReconciler(roomID, e.self.User.ID, s.Store, e.api, s.publishUnread)
	s.handle = e.conns.Open(ctx, connection.RoomTarget(roomID))

	go s.run()
	go s.bootstrap()

	return s
}

func (s *RoomSession) RoomID() string { return s.roomID }

// bootstrap loads the newest history page, restores the persisted read
// cursor, then reports the room visible so the reconciler can fire.
func (s *RoomSession) bootstrap() {
	if _, err := s.Store.LoadPage(s.ctx, s.engine.opts.PageSize); err != nil {
		log.Warn().Err(err).Str("roomID", s.roomID).Msg("session: initial page load failed")
	}
	if s.ctx.Err() != nil {
		return
	}

	s.reconciler.SetVisible(s.ctx, true)
	s.publishUnread(s.Store.UnreadCount())
}

// run consumes the room's typed event stream until the session closes.
func (s *RoomSession) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.handle.Events():
			if !ok {
				return
			}
			s.dispatch(ev)
		}
	}
}

func (s *RoomSession) dispatch(ev connection.Event) {
	switch e := ev.(type) {
	case connection.MessageReceived:
		if e.Message.RoomID != s.roomID {
			return
		}
		s.Store.Append(e.Message)
		s.reconciler.OnMessage(s.ctx, e.Message)
		s.engine.rooms.OnMessage(e.Message, false)
		s.saveCursor()

	case connection.TypingSignal:
		if e.UserID == s.engine.self.User.ID {
			return
		}
		s.Typing.Signal(e.UserID, e.DisplayName, e.IsTyping)

	case connection.ReadReceipt:
		// the counterpart read this room; own messages flip to read
		s.Store.MarkReadBy(e.ReaderID)

	case connection.PresenceChanged:
		s.Presence.Apply(e.UserID, e.Online)

	case connection.ConnectionError:
		// degraded mode: the poll loop reconciles via REST from here on
		log.Warn().Err(e.Err).Str("roomID", s.roomID).Msg("session: room socket lost, relying on polling")

	case connection.NotificationArrived:
		// not delivered on room targets
	}
}

// SendText sends a message optimistically: a provisional entry appears at
// once, the REST call assigns the real id, and the WebSocket echo converges
// onto the same entry. A failed call leaves the entry visible as not-sent.
func (s *RoomSession) SendText(content string) (string, *app_error.AppError) {
	localID := entity.NewLocalID(uuid.New().String())
	s.Store.Append(entity.Message{
		ID:        localID,
		RoomID:    s.roomID,
		Sender:    s.engine.self.User,
		Type:      entity.MessageText,
		Content:   content,
		CreatedAt: time.Now(),
		IsRead:    true,
		Pending:   true,
	})

	s.debounce.Flush()

	msg, err := s.engine.api.SendMessage(s.ctx, chat_dto.SendMessageRequest{
		RoomID:  s.roomID,
		Type:    string(entity.MessageText),
		Content: content,
	})
	if s.ctx.Err() != nil {
		return localID, nil
	}
	if err != nil {
		s.Store.MarkFailed(localID)
		log.Warn().Err(err).Str("roomID", s.roomID).Msg("session: send failed, message kept as not-sent")
		return localID, err
	}

	if appErr := s.Store.MarkLocalSent(localID, msg.ID); appErr != nil {
		log.Debug().Str("roomID", s.roomID).Msg(appErr.Message)
	}
	s.engine.rooms.OnMessage(msg, false)
	return msg.ID, nil
}

// SendFile uploads an attachment. The optimistic entry stays pending, with
// no download URL and no unread contribution, until the upload resolves.
func (s *RoomSession) SendFile(name string, size int64, mime string) (string, *app_error.AppError) {
	localID := entity.NewLocalID(uuid.New().String())
	s.Store.Append(entity.Message{
		ID:        localID,
		RoomID:    s.roomID,
		Sender:    s.engine.self.User,
		Type:      entity.MessageFile,
		File:      &entity.FileMeta{Name: name, Size: size, Mime: mime},
		CreatedAt: time.Now(),
		IsRead:    true,
		Pending:   true,
	})

	msg, err := s.engine.api.SendMessage(s.ctx, chat_dto.SendMessageRequest{
		RoomID:   s.roomID,
		Type:     string(entity.MessageFile),
		FileName: name,
		FileSize: size,
		FileMime: mime,
	})
	if s.ctx.Err() != nil {
		return localID, nil
	}
	if err != nil {
		s.Store.MarkFailed(localID)
		return localID, err
	}

	if appErr := s.Store.MarkLocalSent(localID, msg.ID); appErr != nil {
		log.Debug().Str("roomID", s.roomID).Msg(appErr.Message)
	}
	if msg.File != nil {
		s.Store.ResolveFile(msg.ID, msg.File.URL)
	}
	s.engine.rooms.OnMessage(msg, false)
	return msg.ID, nil
}

// Keystroke notes local typing input; the debouncer decides what actually
// goes over the wire.
func (s *RoomSession) Keystroke() {
	s.debounce.Keystroke()
}

// LoadOlder pages further back into the room's history.
func (s *RoomSession) LoadOlder() (int, *app_error.AppError) {
	return s.Store.LoadPage(s.ctx, s.engine.opts.PageSize)
}

// poll reconciles the room against REST when the socket has gone quiet: the
// latest page merges through the store's dedupe, so nothing duplicates.
func (s *RoomSession) poll() {
	msgs, err := s.engine.api.MessagesBefore(s.ctx, s.roomID, "", s.engine.opts.PageSize)
	if err != nil || s.ctx.Err() != nil {
		return
	}
	for _, m := range msgs {
		if s.Store.Append(m) {
			s.reconciler.OnMessage(s.ctx, m)
			s.engine.rooms.OnMessage(m, false)
		}
	}
	s.saveCursor()
}

func (s *RoomSession) sendTyping(on bool) {
	if err := s.handle.Send(connection.TypingFrame(on)); err != nil {
		log.Debug().Str("roomID", s.roomID).Msg(err.Message)
	}
}

func (s *RoomSession) publishUnread(count int) {
	s.engine.rooms.SetUnread(s.roomID, count)
	s.saveCursor()
}

// saveCursor persists the last-seen position, best effort.
func (s *RoomSession) saveCursor() {
	msgs := s.Store.Messages()
	lastSeen := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if !entity.LocalID(msgs[i].ID) {
			lastSeen = msgs[i].ID
			break
		}
	}
	if lastSeen == "" {
		return
	}

	snap := cursor.Snapshot{
		LastSeenMessageID: lastSeen,
		UnreadCount:       s.Store.UnreadCount(),
		UpdatedAt:         time.Now(),
	}
	if err := s.engine.cursors.Set(s.ctx, s.engine.self.User.ID, s.roomID, snap); err != nil && s.ctx.Err() == nil {
		log.Debug().Err(err).Str("roomID", s.roomID).Msg("session: cursor save failed")
	}
}

// close tears the session down: in-flight calls are discarded via the
// context, timers stop, the subscription is released.
func (s *RoomSession) close() {
	s.reconciler.SetVisible(s.ctx, false)
	s.cancel()
	s.debounce.Stop()
	s.Typing.Stop()
	s.Presence.Reset()
	s.engine.conns.Close(s.handle)
}
