package roomlist

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
)

// Synchronizer keeps the conversation list ordered by most-recent activity,
// merging push updates and REST snapshots without clobbering local state.
// The merge is non-destructive: rooms the snapshot omits stay listed, and
// transient fields like the current selection survive refreshes.
type Synchronizer struct {
	mu       sync.Mutex
	order    []string
	rooms    map[string]*entity.Room
	onChange func([]entity.Room)
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		rooms: make(map[string]*entity.Room),
	}
}

func (s *Synchronizer) OnChange(fn func([]entity.Room)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// ApplySnapshot merges an authoritative REST listing. Fields update by room
// id, new rooms join the list, locally-known rooms missing from the snapshot
// are kept, and everything re-sorts by the authoritative last-message time.
func (s *Synchronizer) ApplySnapshot(snapshot []entity.Room) {
	s.mu.Lock()

	for _, in := range snapshot {
		in := in
		if cur, ok := s.rooms[in.ID]; ok {
			in.Selected = cur.Selected
			*cur = in
		} else {
			s.rooms[in.ID] = &in
			s.order = append(s.order, in.ID)
		}
	}

	sort.SliceStable(s.order, func(i, j int) bool {
		return s.rooms[s.order[i]].ActivityAt().After(s.rooms[s.order[j]].ActivityAt())
	})

	s.notifyLocked()
}

// Upsert inserts or updates a single room, e.g. the result of the
// idempotent create-room call.
func (s *Synchronizer) Upsert(room entity.Room) {
	s.mu.Lock()
	if cur, ok := s.rooms[room.ID]; ok {
		room.Selected = cur.Selected
		*cur = room
	} else {
		s.rooms[room.ID] = &room
		s.order = append([]string{room.ID}, s.order...)
	}
	s.notifyLocked()
}

// OnMessage applies a push-delivered message: the room's last-message
// summary updates and the room moves to the front. countUnread bumps the
// unread counter (false for own messages and for the active room).
func (s *Synchronizer) OnMessage(msg entity.Message, countUnread bool) {
	s.mu.Lock()
	room, ok := s.rooms[msg.RoomID]
	if !ok {
		// room not yet known locally; the next snapshot brings the full
		// record, a stub keeps ordering correct meanwhile
		room = &entity.Room{ID: msg.RoomID, Active: true}
		s.rooms[msg.RoomID] = room
		s.order = append(s.order, msg.RoomID)
	}

	preview := msg.Content
	if msg.Type == entity.MessageFile && msg.File != nil {
		preview = msg.File.Name
	}
	room.LastMessage = &entity.LastMessage{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Type:      msg.Type,
		Preview:   preview,
		CreatedAt: msg.CreatedAt,
	}
	room.UpdatedAt = msg.CreatedAt
	if countUnread {
		room.UnreadCount++
	}

	s.moveToFrontLocked(msg.RoomID)
	s.notifyLocked()
}

// Select marks one room as the active conversation and deselects the rest.
func (s *Synchronizer) Select(roomID string) {
	s.mu.Lock()
	for id, r := range s.rooms {
		r.Selected = id == roomID
	}
	s.notifyLocked()
}

// SetUnread applies an authoritative unread count for one room.
func (s *Synchronizer) SetUnread(roomID string, count int) {
	if count < 0 {
		count = 0
	}
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok || room.UnreadCount == count {
		s.mu.Unlock()
		return
	}
	room.UnreadCount = count
	s.notifyLocked()
}

// CloseRoom soft-closes: the room stays listed with its closed flag, it
// never silently disappears.
func (s *Synchronizer) CloseRoom(roomID string) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	room.Active = false
	s.notifyLocked()
	log.Info().Str("roomID", roomID).Msg("roomlist: room closed")
}

// Room returns a copy of one room.
func (s *Synchronizer) Room(roomID string) (entity.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		return *r, true
	}
	return entity.Room{}, false
}

// Rooms returns the ordered snapshot.
func (s *Synchronizer) Rooms() []entity.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UnreadByRoom reports each room's unread count; the badge aggregator's
// chat sources are fed from this.
func (s *Synchronizer) UnreadByRoom() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.rooms))
	for id, r := range s.rooms {
		out[id] = r.UnreadCount
	}
	return out
}

func (s *Synchronizer) moveToFrontLocked(roomID string) {
	for i, id := range s.order {
		if id == roomID {
			copy(s.order[1:i+1], s.order[:i])
			s.order[0] = roomID
			return
		}
	}
}

func (s *Synchronizer) snapshotLocked() []entity.Room {
	out := make([]entity.Room, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rooms[id])
	}
	return out
}

// notifyLocked publishes a snapshot outside the lock. Callers hold the
// lock; it is released here.
func (s *Synchronizer) notifyLocked() {
	fn := s.onChange
	var snap []entity.Room
	if fn != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
