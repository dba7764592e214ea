package interfaces

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// CharacterRepository persists characters. Every read used on behalf of a user
// is owner-scoped: a row owned by someone else is reported as models.ErrNotFound.
//
//go:generate mockery --name CharacterRepository --output ./mocks --outpkg mocks --case=underscore
type CharacterRepository interface {
	Create(ctx context.Context, querier DBTX, character *models.Character) error
	// GetByID loads a character regardless of owner. Used by internal consumers only.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Character, error)
	GetByIDForUser(ctx context.Context, querier DBTX, id, userID uuid.UUID) (*models.Character, error)
	ListByUserID(ctx context.Context, querier DBTX, userID uuid.UUID) ([]*models.Character, error)
	// Delete removes the character and, by cascade, its adventures, scenarios,
	// progress and decisions.
	Delete(ctx context.Context, querier DBTX, id, userID uuid.UUID) error
	IncrementLevel(ctx context.Context, querier DBTX, id uuid.UUID) error
	UpdateCharacterData(ctx context.Context, querier DBTX, id uuid.UUID, data *models.BuildExport) error
	UpdateAvatarRef(ctx context.Context, querier DBTX, id uuid.UUID, avatarRef string) error
}
