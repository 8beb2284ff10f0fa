package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID     `json:"id"`
	CreatedBy     uuid.UUID     `json:"created_by"`
	LastMessage   *string       `json:"last_message"`
	LastMessageAt *time.Time    `json:"last_message_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UnreadCount   int           `json:"unread_count"` // of the requesting user
	Participants  []Participant `json:"participants"`
}

type Participant struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	UnreadCount    int        `json:"unread_count"`
	LastReadAt     *time.Time `json:"last_read_at"`
}

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at"`
	IsDeleted      bool       `json:"is_deleted"`
}
