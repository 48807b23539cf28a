package chat_dto

import "github.com/hakanakfirat27/zeugma-realtime/internal/entity"

type GetRoomsResponse struct {
	Rooms []entity.Room `json:"rooms"`
}

type GetMessagesResponse struct {
	Messages   []entity.Message `json:"messages"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

type SendMessageResponse struct {
	Message entity.Message `json:"message"`
}

type MarkRoomReadResponse struct {
	RoomID     string `json:"room_id"`
	MarkedRead int    `json:"marked_read"`
}

type GetNotificationsResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}
