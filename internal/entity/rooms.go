package entity

import "time"

// LastMessage is the per-room summary the backend maintains for list views.
type LastMessage struct {
	ID        string      `json:"id"`
	Sender    UserSummary `json:"sender"`
	Type      MessageType `json:"type"`
	Preview   string      `json:"preview"`
	CreatedAt time.Time   `json:"created_at"`
}

// Room is a persistent conversation channel between a staff member and one
// client or collector user. Rooms are soft-closed, never deleted.
type Room struct {
	ID          string       `json:"id"`
	Participant UserSummary  `json:"participant"`
	Subject     string       `json:"subject"`
	Active      bool         `json:"is_active"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Selected is local-only transient state; a background snapshot merge
	// must never clobber it.
	Selected bool `json:"-"`
}

// ActivityAt is the ordering timestamp for the room list: the authoritative
// last-message time when present, the room's own update time otherwise.
func (r *Room) ActivityAt() time.Time {
	if r.LastMessage != nil {
		return r.LastMessage.CreatedAt
	}
	return r.UpdatedAt
}
