package domain

import "time"

// Chat message types. Anything else is rejected at the transport boundary.
const (
	MessageTypeText   = "text"
	MessageTypeCode   = "code"
	MessageTypeSystem = "system"
)

// MaxMessageLength bounds chat message content.
const MaxMessageLength = 2000

// ChatMessage is one entry in a room's append-only chat log. Ordering is
// total within a room and defined by coordinator receipt order.
type ChatMessage struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID   string `gorm:"type:varchar(36);not null;index" json:"room_id"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"user_id"`

	AuthorName    string `gorm:"size:255" json:"user_name"`
	AuthorPicture string `gorm:"size:500" json:"user_picture"`

	Content string `gorm:"type:text;not null" json:"content"`
	Type    string `gorm:"size:20;not null;default:text" json:"message_type"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// IsValidMessageType reports whether t is one of the chat message types.
func IsValidMessageType(t string) bool {
	return t == MessageTypeText || t == MessageTypeCode || t == MessageTypeSystem
}
