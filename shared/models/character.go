package models

import (
	"time"

	"github.com/google/uuid"
)

// Character is a role-playing character owned by a user.
type Character struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	UserID        uuid.UUID    `db:"user_id" json:"userId"`
	Name          string       `db:"name" json:"name"`
	Class         string       `db:"class" json:"class"`
	Race          string       `db:"race" json:"race"`
	Gender        string       `db:"gender" json:"gender"`
	Level         int          `db:"level" json:"level"`
	AvatarRef     string       `db:"avatar_ref" json:"avatarRef"`
	CharacterData *BuildExport `db:"character_data" json:"characterData,omitempty"` // Set once an adventure produced a build
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

// BaseStats returns the stats a new adventure starts from.
func (c *Character) BaseStats() Stats {
	return BaseStatsFor(c.Name, c.Class)
}
