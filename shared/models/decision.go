package models

import (
	"time"

	"github.com/google/uuid"
)

// Decision is an append-only audit row of one choice.
type Decision struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AdventureID uuid.UUID `db:"adventure_id" json:"adventureId"`
	CharacterID uuid.UUID `db:"character_id" json:"characterId"`
	ScenarioID  uuid.UUID `db:"scenario_id" json:"scenarioId"`
	ChoiceIndex int       `db:"choice_index" json:"choiceIndex"`
	StatsBefore Stats     `db:"stats_before" json:"statsBefore"`
	StatsAfter  Stats     `db:"stats_after" json:"statsAfter"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
