package typing

import (
	"sort"
	"sync"
	"time"
)

// Typist is one user currently typing in the room.
type Typist struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type entry struct {
	name string
	gen  uint64
	t    *time.Timer
}

// Aggregator tracks ephemeral per-user typing state with bounded staleness:
// an entry expires after the configured interval unless refreshed, and an
// explicit stop signal removes it immediately.
type Aggregator struct {
	expiry time.Duration

	mu       sync.Mutex
	entries  map[string]*entry
	onChange func([]Typist)
}

func NewAggregator(expiry time.Duration) *Aggregator {
	return &Aggregator{
		expiry:  expiry,
		entries: make(map[string]*entry),
	}
}

// OnChange installs a callback fired with the new snapshot after every
// change.
func (a *Aggregator) OnChange(fn func([]Typist)) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// Signal records a typing indicator. isTyping true (re)arms the expiry
// timer, replacing any prior one for that user; false removes immediately.
func (a *Aggregator) Signal(userID, displayName string, isTyping bool) {
	a.mu.Lock()

	if !isTyping {
		e, ok := a.entries[userID]
		if !ok {
			a.mu.Unlock()
			return
		}
		e.t.Stop()
		delete(a.entries, userID)
		a.notifyLocked()
		return
	}

	if e, ok := a.entries[userID]; ok {
		e.name = displayName
		e.gen++
		gen := e.gen
		e.t.Stop()
		e.t = time.AfterFunc(a.expiry, func() { a.expire(userID, gen) })
		a.mu.Unlock()
		return
	}

	e := &entry{name: displayName}
	e.t = time.AfterFunc(a.expiry, func() { a.expire(userID, 0) })
	a.entries[userID] = e
	a.notifyLocked()
}

// expire drops an entry whose timer fired, unless a refresh re-armed it in
// the meantime (the generation moved on).
func (a *Aggregator) expire(userID string, gen uint64) {
	a.mu.Lock()
	e, ok := a.entries[userID]
	if !ok || e.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.entries, userID)
	a.notifyLocked()
}

// Typing returns the current snapshot ordered by display name.
func (a *Aggregator) Typing() []Typist {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Stop cancels every pending expiry timer; called when the room view closes.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		e.t.Stop()
	}
	a.entries = make(map[string]*entry)
}

func (a *Aggregator) snapshotLocked() []Typist {
	out := make([]Typist, 0, len(a.entries))
	for id, e := range a.entries {
		out = append(out, Typist{UserID: id, DisplayName: e.name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// notifyLocked snapshots under the lock, releases it, then fires the
// callback. Callers hold the lock; it is released here.
func (a *Aggregator) notifyLocked() {
	fn := a.onChange
	var snap []Typist
	if fn != nil {
		snap = a.snapshotLocked()
	}
	a.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
