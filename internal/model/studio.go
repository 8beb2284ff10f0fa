package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStudioName is given to the studio created for a new owner.
const DefaultStudioName = "My Dance Studio"

type Studio struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Location struct {
	ID          uuid.UUID `json:"id"`
	StudioID    uuid.UUID `json:"studio_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
}

type Student struct {
	ID          uuid.UUID  `json:"id"`
	StudioID    uuid.UUID  `json:"studio_id"`
	ParentID    uuid.UUID  `json:"parent_id"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// ReferenceData is the studio context loaded once per session.
type ReferenceData struct {
	Studio    *Studio    `json:"studio"`
	Teachers  []Teacher  `json:"teachers"`
	Locations []Location `json:"locations"`
}
