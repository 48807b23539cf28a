package typing

import (
	"sync"
	"time"
)

// Debouncer throttles the current user's outgoing typing signal: one start
// frame per keystroke burst, one stop frame after the idle interval or
// immediately when the message is sent. Never a raw per-keystroke broadcast.
type Debouncer struct {
	idle time.Duration
	send func(on bool)

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func NewDebouncer(idle time.Duration, send func(on bool)) *Debouncer {
	return &Debouncer{idle: idle, send: send}
}

// Keystroke notes user input. The first keystroke of a burst sends the start
// frame; every keystroke re-arms the idle timer.
func (d *Debouncer) Keystroke() {
	d.mu.Lock()
	start := !d.active
	d.active = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.idle, d.idleStop)
	d.mu.Unlock()

	if start {
		d.send(true)
	}
}

func (d *Debouncer) idleStop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	d.send(false)
}

// Flush sends the stop frame immediately; called when the message goes out.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.send(false)
}

// Stop cancels the timer without emitting anything; used on room teardown
// where the connection is going away regardless.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.active = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}
