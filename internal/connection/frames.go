package connection

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
	app_error "github.com/hakanakfirat27/zeugma-realtime/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// inboundFrame is the superset of every frame shape the backend pushes.
// The type discriminator decides which fields are meaningful.
type inboundFrame struct {
	Type string `json:"type"`

	// chat_message
	Message *entity.Message `json:"message,omitempty"`

	// typing_indicator / message_read / user_status
	RoomID      string `json:"room_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsTyping    bool   `json:"is_typing,omitempty"`
	ReaderID    string `json:"reader_id,omitempty"`
	ReadAt      int64  `json:"read_at,omitempty"`
	Status      string `json:"status,omitempty"`

	// notification (global feed only)
	Notification *entity.Notification `json:"notification,omitempty"`
}

// decodeFrame parses one raw frame into a typed event. A malformed frame
// yields a protocol error; the caller logs and drops it, never the dispatcher
// crashing.
func decodeFrame(target Target, data []byte) (Event, *app_error.AppError) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, app_error.NewProtocolError(fmt.Sprintf("unparseable frame: %v", err))
	}

	switch f.Type {
	case "chat_message":
		if f.Message == nil {
			return nil, app_error.NewProtocolError("chat_message frame without message body")
		}
		if !f.Message.Type.Valid() {
			return nil, app_error.NewProtocolError(fmt.Sprintf("unknown message type %q", f.Message.Type))
		}
		if f.Message.RoomID == "" {
			f.Message.RoomID = target.RoomID
		}
		return MessageReceived{Message: *f.Message}, nil

	case "typing_indicator":
		if f.UserID == "" {
			return nil, app_error.NewProtocolError("typing_indicator frame without user_id")
		}
		roomID := f.RoomID
		if roomID == "" {
			roomID = target.RoomID
		}
		return TypingSignal{
			RoomID:      roomID,
			UserID:      f.UserID,
			DisplayName: f.DisplayName,
			IsTyping:    f.IsTyping,
		}, nil

	case "message_read":
		if f.ReaderID == "" {
			return nil, app_error.NewProtocolError("message_read frame without reader_id")
		}
		roomID := f.RoomID
		if roomID == "" {
			roomID = target.RoomID
		}
		return ReadReceipt{
			RoomID:   roomID,
			ReaderID: f.ReaderID,
			ReadAt:   time.Unix(f.ReadAt, 0),
		}, nil

	case "user_status":
		if f.UserID == "" {
			return nil, app_error.NewProtocolError("user_status frame without user_id")
		}
		roomID := f.RoomID
		if roomID == "" {
			roomID = target.RoomID
		}
		return PresenceChanged{
			RoomID: roomID,
			UserID: f.UserID,
			Online: f.Status == "online",
		}, nil

	case "notification":
		if f.Notification == nil {
			return nil, app_error.NewProtocolError("notification frame without notification body")
		}
		if !f.Notification.Type.Valid() {
			// unrecognized kinds degrade to system rather than dropping
			// the whole notification
			f.Notification.Type = entity.NotifSystem
		}
		return NotificationArrived{Notification: *f.Notification}, nil

	default:
		return nil, app_error.NewProtocolError(fmt.Sprintf("unknown frame type %q", f.Type))
	}
}

// OutgoingFrame is a client-to-server frame. Sends and read acks travel over
// REST, so typing indicators are the only thing pushed upstream.
type OutgoingFrame struct {
	Type     string `json:"type"`
	IsTyping *bool  `json:"is_typing,omitempty"`
}

func TypingFrame(on bool) OutgoingFrame {
	return OutgoingFrame{Type: "typing", IsTyping: &on}
}
