package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the role-specific row (owners, teachers or parents) of a user.
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      Role       `json:"role"`
	StudioID  *uuid.UUID `json:"studio_id,omitempty"` // nil for an owner without a studio yet
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
}

type Teacher struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	StudioID uuid.UUID `json:"studio_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

type Parent struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	StudioID uuid.UUID `json:"studio_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}
