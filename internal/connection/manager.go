package connection

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TargetKind discriminates the two subscription endpoints the backend
// exposes.
type TargetKind string

const (
	TargetRoom          TargetKind = "room"
	TargetNotifications TargetKind = "notifications"
)

// Target identifies one logical subscription: a specific room, or the global
// notification feed.
type Target struct {
	Kind   TargetKind
	RoomID string
}

func RoomTarget(roomID string) Target {
	return Target{Kind: TargetRoom, RoomID: roomID}
}

func NotificationsTarget() Target {
	return Target{Kind: TargetNotifications}
}

func (t Target) String() string {
	if t.Kind == TargetRoom {
		return "room:" + t.RoomID
	}
	return string(t.Kind)
}

func (t Target) endpoint(base, token string) string {
	base = strings.TrimRight(base, "/")
	q := url.Values{"token": {token}}
	switch t.Kind {
	case TargetRoom:
		return base + "/ws/chat/" + url.PathEscape(t.RoomID) + "/?" + q.Encode()
	default:
		return base + "/ws/notifications/?" + q.Encode()
	}
}

// ManagerStats is the snapshot surfaced on the status API.
type ManagerStats struct {
	OpenSubscriptions int   `json:"open_subscriptions"`
	TotalOpened       int64 `json:"total_opened"`
	DroppedFrames     int64 `json:"dropped_frames"`
}

// Manager supervises exactly one live connection per subscription target.
type Manager struct {
	wsBase string
	token  string
	dialer *websocket.Dialer

	mu      sync.Mutex
	handles map[Target]*Handle

	totalOpened int64
}

func NewManager(wsBase, token string) *Manager {
	return &Manager{
		wsBase:  wsBase,
		token:   token,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handles: make(map[Target]*Handle),
	}
}

// Open returns the live handle for target, dialing only if none exists.
// Dialing happens in the background: a transport failure arrives on the
// handle's event stream as a ConnectionError, Open itself never fails.
func (m *Manager) Open(ctx context.Context, target Target) *Handle {
	m.mu.Lock()
	if h, ok := m.handles[target]; ok {
		m.mu.Unlock()
		return h
	}

	h := newHandle(target)
	m.handles[target] = h
	m.totalOpened++
	m.mu.Unlock()

	go m.dial(ctx, h)
	return h
}

func (m *Manager) dial(ctx context.Context, h *Handle) {
	ws, _, err := m.dialer.DialContext(ctx, h.target.endpoint(m.wsBase, m.token), nil)
	if err != nil {
		log.Warn().Err(err).Str("target", h.target.String()).Msg("ws: dial failed")
		h.deliver(ConnectionError{Target: h.target, Err: err})
		h.shutdown()
		m.forget(h)
		return
	}

	if !h.attach(ws) {
		// closed while dialing
		_ = ws.Close()
		return
	}

	go h.writePump()
	go h.readPump()

	// Once the handle dies, for any reason, drop it from the registry so a
	// later Open for the same target dials fresh instead of getting a corpse.
	go func() {
		<-h.Done()
		m.forget(h)
	}()

	log.Info().Str("target", h.target.String()).Msg("ws: subscription opened")
}

// Close releases a handle. Safe to call multiple times; no further events
// are delivered.
func (m *Manager) Close(h *Handle) {
	if h == nil {
		return
	}
	h.shutdown()
	m.forget(h)
}

// CloseAll tears down every open subscription.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.handles = make(map[Target]*Handle)
	m.mu.Unlock()

	for _, h := range handles {
		h.shutdown()
	}
	log.Info().Int("closed", len(handles)).Msg("ws: all subscriptions closed")
}

func (m *Manager) forget(h *Handle) {
	m.mu.Lock()
	if cur, ok := m.handles[h.target]; ok && cur == h {
		delete(m.handles, h.target)
	}
	m.mu.Unlock()
}

func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{
		OpenSubscriptions: len(m.handles),
		TotalOpened:       m.totalOpened,
	}
	for _, h := range m.handles {
		stats.DroppedFrames += h.dropped.Load()
	}
	return stats
}
