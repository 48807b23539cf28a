package presence

import (
	"sync"
	"time"
)

// Status is the answer for one user.
type Status struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Tracker holds online/offline state updated only by server push. Scope
// matches the backend's: the counterpart of the currently-open room, not a
// global roster.
type Tracker struct {
	mu       sync.RWMutex
	online   map[string]bool
	lastSeen map[string]time.Time
	onChange func(Status)
}

func NewTracker() *Tracker {
	return &Tracker{
		online:   make(map[string]bool),
		lastSeen: make(map[string]time.Time),
	}
}

func (t *Tracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Apply records a user_status push.
func (t *Tracker) Apply(userID string, online bool) {
	t.mu.Lock()
	prev, known := t.online[userID]
	t.online[userID] = online
	if !online && known && prev {
		t.lastSeen[userID] = time.Now()
	}
	fn := t.onChange
	changed := !known || prev != online
	st := t.statusLocked(userID)
	t.mu.Unlock()

	if changed && fn != nil {
		fn(st)
	}
}

// Online reports last-known state; unknown users are offline.
func (t *Tracker) Online(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[userID]
}

func (t *Tracker) StatusOf(userID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statusLocked(userID)
}

func (t *Tracker) statusLocked(userID string) Status {
	return Status{
		UserID:   userID,
		Online:   t.online[userID],
		LastSeen: t.lastSeen[userID],
	}
}

// Reset drops all state; called on room switch since presence is scoped to
// the open conversation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.online = make(map[string]bool)
	t.lastSeen = make(map[string]time.Time)
	t.mu.Unlock()
}
