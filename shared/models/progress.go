package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgressRecord is the durable pointer and stats snapshot of an adventure.
// CurrentSequence is nil once the adventure has completed.
type ProgressRecord struct {
	AdventureID     uuid.UUID `db:"adventure_id" json:"adventureId"`
	CharacterID     uuid.UUID `db:"character_id" json:"characterId"`
	CurrentSequence *int      `db:"current_sequence" json:"currentSequence"`
	Stats           Stats     `db:"stats" json:"stats"`
	Version         int       `db:"version" json:"version"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
