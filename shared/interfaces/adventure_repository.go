package interfaces

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

//go:generate mockery --name AdventureRepository --output ./mocks --outpkg mocks --case=underscore
type AdventureRepository interface {
	Create(ctx context.Context, querier DBTX, adventure *models.Adventure) error
	// GetByIDForUser returns models.ErrNotFound when the adventure is missing or
	// its character belongs to another user.
	GetByIDForUser(ctx context.Context, querier DBTX, id, userID uuid.UUID) (*models.Adventure, error)
	// FindInProgress returns the in-progress adventure of a character for a template.
	FindInProgress(ctx context.Context, querier DBTX, characterID uuid.UUID, templateSlug string) (*models.Adventure, error)
	ListByCharacterID(ctx context.Context, querier DBTX, characterID uuid.UUID) ([]*models.Adventure, error)
	UpdateStage(ctx context.Context, querier DBTX, id uuid.UUID, stage int) error
	// MarkCompleted freezes the adventure. Returns models.ErrAdventureCompleted
	// if it was already completed.
	MarkCompleted(ctx context.Context, querier DBTX, id uuid.UUID, stage int, result *models.BuildExport) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
}

// ScenarioRepository stores the per-adventure copies of template nodes.
//
//go:generate mockery --name ScenarioRepository --output ./mocks --outpkg mocks --case=underscore
type ScenarioRepository interface {
	CreateBatch(ctx context.Context, querier DBTX, nodes []*models.ScenarioNode) error
	// GetBySequence returns models.ErrNotFound when the adventure has no node at sequence.
	GetBySequence(ctx context.Context, querier DBTX, adventureID uuid.UUID, sequence int) (*models.ScenarioNode, error)
}

//go:generate mockery --name ProgressRepository --output ./mocks --outpkg mocks --case=underscore
type ProgressRepository interface {
	Create(ctx context.Context, querier DBTX, progress *models.ProgressRecord) error
	Get(ctx context.Context, querier DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, querier DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error)
	// Update writes pointer and stats and bumps Version.
	Update(ctx context.Context, querier DBTX, progress *models.ProgressRecord) error
}

// DecisionRepository is append-only.
//
//go:generate mockery --name DecisionRepository --output ./mocks --outpkg mocks --case=underscore
type DecisionRepository interface {
	Create(ctx context.Context, querier DBTX, decision *models.Decision) error
	ListByAdventureID(ctx context.Context, querier DBTX, adventureID uuid.UUID) ([]*models.Decision, error)
}
