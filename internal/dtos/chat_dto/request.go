package chat_dto

// SendMessageRequest posts a new message into a room.
type SendMessageRequest struct {
	RoomID  string `json:"room" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=TEXT FILE"`
	Content string `json:"content" validate:"required_if=Type TEXT"`

	// FILE sends carry the upload metadata; the server answers with the
	// confirmed download URL.
	FileName string `json:"file_name,omitempty" validate:"required_if=Type FILE"`
	FileSize int64  `json:"file_size,omitempty"`
	FileMime string `json:"file_mime,omitempty"`
}

// GetMessagesRequest pages a room's history backwards from a cursor.
type GetMessagesRequest struct {
	RoomID   string `json:"room_id" validate:"required"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=100"`
	BeforeID string `json:"before_id,omitempty"` // cursor pagination
}

// CreateRoomRequest opens (or reuses) the conversation with a participant.
type CreateRoomRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	Subject       string `json:"subject"`
}

// MarkRoomReadRequest acknowledges every unread message in a room.
type MarkRoomReadRequest struct {
	RoomID string `json:"room_id" validate:"required"`
}
