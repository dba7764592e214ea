package mocks

import (
	"context"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CharacterRepository struct {
	mock.Mock
}

var _ interfaces.CharacterRepository = (*CharacterRepository)(nil)

func (m *CharacterRepository) Create(ctx context.Context, querier interfaces.DBTX, character *models.Character) error {
	args := m.Called(ctx, querier, character)
	return args.Error(0)
}

func (m *CharacterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Character, error) {
	args := m.Called(ctx, querier, id)
	if c, ok := args.Get(0).(*models.Character); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CharacterRepository) GetByIDForUser(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) (*models.Character, error) {
	args := m.Called(ctx, querier, id, userID)
	if c, ok := args.Get(0).(*models.Character); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CharacterRepository) ListByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) ([]*models.Character, error) {
	args := m.Called(ctx, querier, userID)
	if c, ok := args.Get(0).([]*models.Character); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CharacterRepository) Delete(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) error {
	args := m.Called(ctx, querier, id, userID)
	return args.Error(0)
}

func (m *CharacterRepository) IncrementLevel(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *CharacterRepository) UpdateCharacterData(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, data *models.BuildExport) error {
	args := m.Called(ctx, querier, id, data)
	return args.Error(0)
}

func (m *CharacterRepository) UpdateAvatarRef(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, avatarRef string) error {
	args := m.Called(ctx, querier, id, avatarRef)
	return args.Error(0)
}
