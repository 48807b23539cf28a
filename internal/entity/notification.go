package entity

import "time"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotifProjectAssignment NotificationType = "project_assignment"
	NotifTaskUpdate        NotificationType = "task_update"
	NotifMessage           NotificationType = "message"
	NotifAnnouncement      NotificationType = "announcement"
	NotifSystem            NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifProjectAssignment, NotifTaskUpdate, NotifMessage, NotifAnnouncement, NotifSystem:
		return true
	}
	return false
}

// Notification is created server-side; the client only reads, marks read or
// deletes.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	RelatedID string           `json:"related_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
