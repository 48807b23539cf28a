package entity

import (
	"strings"
	"time"
)

// MessageType is the closed set of message kinds the backend sends.
type MessageType string

const (
	MessageText MessageType = "TEXT"
	MessageFile MessageType = "FILE"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageFile
}

// FileMeta describes the attachment of a FILE message. URL stays empty on an
// optimistic local entry until the upload call resolves.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime_type"`
	URL  string `json:"url,omitempty"`
}

// Message is immutable once server-confirmed. A locally originated message
// carries a provisional "local-" id and Pending=true until the server echo
// or the send response assigns the real id.
type Message struct {
	ID        string      `json:"id"`
	RoomID    string      `json:"room_id"`
	Sender    UserSummary `json:"sender"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content,omitempty"`
	File      *FileMeta   `json:"file,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	IsRead    bool        `json:"is_read"`
	Pending   bool        `json:"-"`
	Failed    bool        `json:"-"`
}

const localIDPrefix = "local-"

// LocalID reports whether id is a provisional client-assigned identifier.
func LocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// NewLocalID builds a provisional identifier from a generated suffix.
func NewLocalID(suffix string) string {
	return localIDPrefix + suffix
}
