package models

import (
	"time"

	"github.com/google/uuid"
)

// AdventureStatus is the lifecycle state of an Adventure.
type AdventureStatus string

const (
	AdventureStatusInProgress AdventureStatus = "in_progress"
	AdventureStatusCompleted  AdventureStatus = "completed"
)

// Adventure is one playthrough of a template by one character.
type Adventure struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	CharacterID  uuid.UUID       `db:"character_id" json:"characterId"`
	TemplateSlug string          `db:"template_slug" json:"template"`
	Status       AdventureStatus `db:"status" json:"status"`
	CurrentStage int             `db:"current_stage" json:"currentStage"`
	TotalStages  int             `db:"total_stages" json:"totalStages"`
	ResultData   *BuildExport    `db:"result_data" json:"resultData,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}

// IsCompleted reports whether the adventure is frozen.
func (a *Adventure) IsCompleted() bool {
	return a.Status == AdventureStatusCompleted
}
