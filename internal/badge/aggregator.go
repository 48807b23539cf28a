package badge

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Aggregator is the single source of truth for the unread badge. Sources
// (one per room, one for the notification feed) register their counts; every
// subscriber sees the same total, recomputed synchronously on each update so
// it can never drift from sum(sources).
type Aggregator struct {
	mu        sync.Mutex
	sources   map[string]int
	subs      map[int]func(total int)
	nextSub   int
	reconcile func(sourceID string)
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		sources: make(map[string]int),
		subs:    make(map[int]func(total int)),
	}
}

// OnClear installs the reconciling fetch scheduled after an optimistic Clear.
func (a *Aggregator) OnClear(fn func(sourceID string)) {
	a.mu.Lock()
	a.reconcile = fn
	a.mu.Unlock()
}

// Set registers or updates one source. Negative counts clamp to zero.
func (a *Aggregator) Set(sourceID string, count int) {
	if count < 0 {
		count = 0
	}
	a.mu.Lock()
	if cur, ok := a.sources[sourceID]; ok && cur == count {
		a.mu.Unlock()
		return
	}
	a.sources[sourceID] = count
	a.publishLocked()
}

// Remove deregisters a source, e.g. when the surface owning it unmounts.
func (a *Aggregator) Remove(sourceID string) {
	a.mu.Lock()
	if _, ok := a.sources[sourceID]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.sources, sourceID)
	a.publishLocked()
}

// Clear optimistically zeroes one source and schedules the reconciling
// fetch; if the authoritative count disagrees the next Set corrects it
// silently.
func (a *Aggregator) Clear(sourceID string) {
	a.mu.Lock()
	fn := a.reconcile
	if _, ok := a.sources[sourceID]; !ok {
		a.mu.Unlock()
		return
	}
	a.sources[sourceID] = 0
	a.publishLocked()

	if fn != nil {
		go fn(sourceID)
	}
	log.Debug().Str("source", sourceID).Msg("badge: source cleared optimistically")
}

// Subscribe registers a callback fired with the current total immediately
// and on every change. The returned function unsubscribes; surfaces call it
// on unmount.
func (a *Aggregator) Subscribe(fn func(total int)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	total := a.totalLocked()
	a.mu.Unlock()

	fn(total)

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Total is the current badge value.
func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalLocked()
}

// Snapshot reports the per-source breakdown for the status API.
func (a *Aggregator) Snapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.sources))
	for k, v := range a.sources {
		out[k] = v
	}
	return out
}

func (a *Aggregator) totalLocked() int {
	total := 0
	for _, c := range a.sources {
		total += c
	}
	return total
}

// publishLocked recomputes the total and notifies subscribers. Callbacks run
// outside the lock so a subscriber may call back into the aggregator.
// Callers hold the lock; it is released here.
func (a *Aggregator) publishLocked() {
	total := a.totalLocked()
	subs := make([]func(int), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(total)
	}
}
