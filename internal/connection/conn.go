package connection

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MB

	sendBuffer  = 64
	eventBuffer = 256
)

// Handle is one live subscription. Events arrive on Events() until the
// handle is closed or the transport fails; after a ConnectionError nothing
// more is delivered.
type Handle struct {
	target Target
	events chan Event
	send   chan []byte
	done   chan struct{}

	mu     sync.Mutex
	ws     *websocket.Conn // nil until the dial completes
	closed bool

	lastEvent atomic.Int64 // unix nano of last delivered event
	dropped   atomic.Int64
}

func newHandle(target Target) *Handle {
	h := &Handle{
		target: target,
		events: make(chan Event, eventBuffer),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.lastEvent.Store(time.Now().UnixNano())
	return h
}

func (h *Handle) Target() Target { return h.target }

// Events is the typed event stream for this subscription. The channel is
// closed when the handle is closed.
func (h *Handle) Events() <-chan Event { return h.events }

// Done is closed when the handle stops delivering, whether by Close or by
// transport failure.
func (h *Handle) Done() <-chan struct{} { return h.done }

// SilentFor reports how long ago the last event was delivered. Callers use
// it to decide when a REST reconciliation fetch is due.
func (h *Handle) SilentFor() time.Duration {
	return time.Duration(time.Now().UnixNano() - h.lastEvent.Load())
}

// Send queues an outgoing frame. Returns a connection error once the handle
// is closed or when the writer cannot keep up.
func (h *Handle) Send(frame OutgoingFrame) *app_error.AppError {
	data, err := json.Marshal(frame)
	if err != nil {
		return app_error.NewProtocolError("failed to marshal outgoing frame")
	}

	select {
	case <-h.done:
		return app_error.NewConnectionError("subscription is closed")
	default:
	}

	select {
	case h.send <- data:
		return nil
	case <-h.done:
		return app_error.NewConnectionError("subscription is closed")
	default:
		return app_error.NewConnectionError("outgoing buffer full")
	}
}

// deliver pushes an event without ever blocking the read pump. A full buffer
// means a slow consumer; the event is dropped and counted.
func (h *Handle) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	select {
	case h.events <- ev:
		h.lastEvent.Store(time.Now().UnixNano())
	default:
		h.dropped.Add(1)
		log.Warn().Str("target", h.target.String()).Msg("ws: slow consumer, dropping event")
	}
}

func (h *Handle) attach(ws *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.ws = ws
	return true
}

// shutdown stops both pumps and closes the event stream. Safe to call any
// number of times from any goroutine.
func (h *Handle) shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	ws := h.ws
	close(h.done)
	close(h.events)
	h.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
}

// readPump reads frames until the transport fails, decoding each one into a
// typed event. Malformed frames are logged and dropped.
func (h *Handle) readPump() {
	defer h.shutdown()

	h.ws.SetReadLimit(maxMessageSize)
	_ = h.ws.SetReadDeadline(time.Now().Add(pongWait))
	h.ws.SetPongHandler(func(string) error {
		_ = h.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := h.ws.ReadMessage()
		if err != nil {
			h.mu.Lock()
			closed := h.closed
			h.mu.Unlock()
			if !closed {
				log.Warn().Err(err).Str("target", h.target.String()).Msg("ws: connection lost")
				h.deliver(ConnectionError{Target: h.target, Err: err})
			}
			return
		}

		ev, appErr := decodeFrame(h.target, data)
		if appErr != nil {
			h.dropped.Add(1)
			log.Warn().Str("target", h.target.String()).Str("kind", string(appErr.Kind)).Msg(appErr.Message)
			continue
		}

		h.deliver(ev)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (h *Handle) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = h.ws.Close()
	}()

	for {
		select {
		case <-h.done:
			_ = h.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = h.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-h.send:
			_ = h.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := h.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = h.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := h.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
