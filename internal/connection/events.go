package connection

import (
	"time"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
)

// Event is the closed set of typed events a subscription can deliver.
// Consumers switch exhaustively over the concrete types; new frame kinds are
// additions here, not stringly-typed branches downstream.
type Event interface {
	event()
}

type MessageReceived struct {
	Message entity.Message
}

type TypingSignal struct {
	RoomID      string
	UserID      string
	DisplayName string
	IsTyping    bool
}

type ReadReceipt struct {
	RoomID   string
	ReaderID string
	ReadAt   time.Time
}

type PresenceChanged struct {
	RoomID string
	UserID string
	Online bool
}

type NotificationArrived struct {
	Notification entity.Notification
}

// ConnectionError reports a transport failure on the stream instead of as a
// returned error from Open. The subscription is dead afterwards; recovery is
// the caller's polling fallback, not an automatic reconnect.
type ConnectionError struct {
	Target Target
	Err    error
}

func (MessageReceived) event()     {}
func (TypingSignal) event()        {}
func (ReadReceipt) event()         {}
func (PresenceChanged) event()     {}
func (NotificationArrived) event() {}
func (ConnectionError) event()     {}
