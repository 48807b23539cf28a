package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

// Fetcher loads older message pages from the REST backend.
type Fetcher interface {
	MessagesBefore(ctx context.Context, roomID, beforeID string, limit int) ([]entity.Message, error)
}

// MessageStore is the ordered, deduplicated, append-mostly log for one open
// room. The same message can arrive as a WebSocket push, a REST page and a
// local optimistic send; every path converges to exactly one stored entry
// per id, ordered by server timestamp ascending with arrival-order tie break.
type MessageStore struct {
	roomID  string
	selfID  string
	fetcher Fetcher

	mu    sync.Mutex
	msgs  []entity.Message
	index map[string]struct{}
}

func NewMessageStore(roomID, selfID string, fetcher Fetcher) *MessageStore {
	return &MessageStore{
		roomID:  roomID,
		selfID:  selfID,
		fetcher: fetcher,
		index:   make(map[string]struct{}),
	}
}

func (s *MessageStore) RoomID() string { return s.roomID }

// Append inserts a message unless its id is already present. An incoming
// server echo of a pending local send adopts the local entry in place rather
// than duplicating it.
func (s *MessageStore) Append(msg entity.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[msg.ID]; ok {
		return false
	}

	if !entity.LocalID(msg.ID) && msg.Sender.ID == s.selfID {
		if i := s.findPendingTwin(msg); i >= 0 {
			old := s.msgs[i].ID
			delete(s.index, old)
			msg.Pending = false
			s.msgs[i] = msg
			s.index[msg.ID] = struct{}{}
			log.Debug().Str("roomID", s.roomID).Str("localID", old).Str("serverID", msg.ID).Msg("store: echo adopted pending send")
			return true
		}
	}

	s.insert(msg)
	return true
}

// findPendingTwin locates a pending local entry matching a server echo.
// Caller holds the lock.
func (s *MessageStore) findPendingTwin(echo entity.Message) int {
	for i := len(s.msgs) - 1; i >= 0; i-- {
		m := &s.msgs[i]
		if m.Pending && entity.LocalID(m.ID) && m.Type == echo.Type && m.Content == echo.Content {
			return i
		}
	}
	return -1
}

// insert keeps server-timestamp ascending order; equal timestamps keep
// arrival order, so the scan walks back only past strictly later entries.
// Caller holds the lock.
func (s *MessageStore) insert(msg entity.Message) {
	pos := len(s.msgs)
	for pos > 0 && s.msgs[pos-1].CreatedAt.After(msg.CreatedAt) {
		pos--
	}

	s.msgs = append(s.msgs, entity.Message{})
	copy(s.msgs[pos+1:], s.msgs[pos:])
	s.msgs[pos] = msg
	s.index[msg.ID] = struct{}{}
}

// MarkLocalSent swaps a provisional id for the server-assigned one, keeping
// position. When the echo has already landed under the server id the
// provisional entry is dropped instead; that is the dedupe converging, not a
// failure.
func (s *MessageStore) MarkLocalSent(provisionalID, serverID string) *app_error.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := -1
	for i, m := range s.msgs {
		if m.ID == provisionalID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return app_error.NewReconciliationError("provisional message not found: " + provisionalID)
	}

	if _, ok := s.index[serverID]; ok {
		s.msgs = append(s.msgs[:pos], s.msgs[pos+1:]...)
		delete(s.index, provisionalID)
		return nil
	}

	delete(s.index, provisionalID)
	s.msgs[pos].ID = serverID
	s.msgs[pos].Pending = false
	s.index[serverID] = struct{}{}
	return nil
}

// LoadPage fetches one page of older messages and merges it without
// disturbing or reordering already-loaded entries. Returns how many entries
// were actually new.
func (s *MessageStore) LoadPage(ctx context.Context, limit int) (int, *app_error.AppError) {
	beforeID := ""
	s.mu.Lock()
	for _, m := range s.msgs {
		if !entity.LocalID(m.ID) {
			beforeID = m.ID
			break
		}
	}
	s.mu.Unlock()

	page, err := s.fetcher.MessagesBefore(ctx, s.roomID, beforeID, limit)
	if err != nil {
		return 0, app_error.NewRequestFailure(0, "failed to load message page: "+err.Error())
	}
	if ctx.Err() != nil {
		// room was switched away while the fetch was in flight; the page
		// must not touch the now-inactive store
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, m := range page {
		if _, ok := s.index[m.ID]; ok {
			continue
		}
		s.insert(m)
		added++
	}
	return added, nil
}

// MarkFailed flags a provisional entry whose send call failed. The message
// stays visible as not-sent instead of vanishing or pretending success.
func (s *MessageStore) MarkFailed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i].Failed = true
			return
		}
	}
}

// ResolveFile fills in the confirmed download URL of a pending FILE message.
func (s *MessageStore) ResolveFile(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == id && s.msgs[i].File != nil {
			s.msgs[i].File.URL = url
			s.msgs[i].Pending = false
			return
		}
	}
}

// MarkReadBy flags every message not sent by readerID as read. Used both for
// the counterpart's read receipts and for the local mark-read ack.
func (s *MessageStore) MarkReadBy(readerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.msgs {
		if s.msgs[i].Sender.ID != readerID && !s.msgs[i].IsRead {
			s.msgs[i].IsRead = true
			n++
		}
	}
	return n
}

// MarkReadIDs flags exactly the given messages as read; the ack path of a
// mark-read call, which must not overclaim messages that arrived while the
// call was in flight.
func (s *MessageStore) MarkReadIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.msgs {
		if _, ok := want[s.msgs[i].ID]; ok {
			s.msgs[i].IsRead = true
		}
	}
}

// MarkUnreadFromCounterpart reverts counterpart messages to unread; the
// rollback path when a mark-read call fails.
func (s *MessageStore) MarkUnreadFromCounterpart(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for i := range s.msgs {
		if _, ok := want[s.msgs[i].ID]; ok {
			s.msgs[i].IsRead = false
		}
	}
}

// UnreadFromCounterpart lists unread messages sent by the other participant.
// Pending entries never contribute.
func (s *MessageStore) UnreadFromCounterpart() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, m := range s.msgs {
		if !m.IsRead && !m.Pending && m.Sender.ID != s.selfID {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// UnreadCount is the room's contribution to the unread badge.
func (s *MessageStore) UnreadCount() int {
	return len(s.UnreadFromCounterpart())
}

// Messages returns an ordered snapshot.
func (s *MessageStore) Messages() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}
