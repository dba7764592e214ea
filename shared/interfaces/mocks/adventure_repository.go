package mocks

import (
	"context"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type AdventureRepository struct {
	mock.Mock
}

var _ interfaces.AdventureRepository = (*AdventureRepository)(nil)

func (m *AdventureRepository) Create(ctx context.Context, querier interfaces.DBTX, adventure *models.Adventure) error {
	args := m.Called(ctx, querier, adventure)
	return args.Error(0)
}

func (m *AdventureRepository) GetByIDForUser(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) (*models.Adventure, error) {
	args := m.Called(ctx, querier, id, userID)
	if a, ok := args.Get(0).(*models.Adventure); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AdventureRepository) FindInProgress(ctx context.Context, querier interfaces.DBTX, characterID uuid.UUID, templateSlug string) (*models.Adventure, error) {
	args := m.Called(ctx, querier, characterID, templateSlug)
	if a, ok := args.Get(0).(*models.Adventure); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AdventureRepository) ListByCharacterID(ctx context.Context, querier interfaces.DBTX, characterID uuid.UUID) ([]*models.Adventure, error) {
	args := m.Called(ctx, querier, characterID)
	if a, ok := args.Get(0).([]*models.Adventure); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AdventureRepository) UpdateStage(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, stage int) error {
	args := m.Called(ctx, querier, id, stage)
	return args.Error(0)
}

func (m *AdventureRepository) MarkCompleted(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, stage int, result *models.BuildExport) error {
	args := m.Called(ctx, querier, id, stage, result)
	return args.Error(0)
}

func (m *AdventureRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

type ScenarioRepository struct {
	mock.Mock
}

var _ interfaces.ScenarioRepository = (*ScenarioRepository)(nil)

func (m *ScenarioRepository) CreateBatch(ctx context.Context, querier interfaces.DBTX, nodes []*models.ScenarioNode) error {
	args := m.Called(ctx, querier, nodes)
	return args.Error(0)
}

func (m *ScenarioRepository) GetBySequence(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID, sequence int) (*models.ScenarioNode, error) {
	args := m.Called(ctx, querier, adventureID, sequence)
	if n, ok := args.Get(0).(*models.ScenarioNode); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

type ProgressRepository struct {
	mock.Mock
}

var _ interfaces.ProgressRepository = (*ProgressRepository)(nil)

func (m *ProgressRepository) Create(ctx context.Context, querier interfaces.DBTX, progress *models.ProgressRecord) error {
	args := m.Called(ctx, querier, progress)
	return args.Error(0)
}

func (m *ProgressRepository) Get(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error) {
	args := m.Called(ctx, querier, adventureID)
	if p, ok := args.Get(0).(*models.ProgressRecord); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProgressRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error) {
	args := m.Called(ctx, querier, adventureID)
	if p, ok := args.Get(0).(*models.ProgressRecord); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProgressRepository) Update(ctx context.Context, querier interfaces.DBTX, progress *models.ProgressRecord) error {
	args := m.Called(ctx, querier, progress)
	return args.Error(0)
}

type DecisionRepository struct {
	mock.Mock
}

var _ interfaces.DecisionRepository = (*DecisionRepository)(nil)

func (m *DecisionRepository) Create(ctx context.Context, querier interfaces.DBTX, decision *models.Decision) error {
	args := m.Called(ctx, querier, decision)
	return args.Error(0)
}

func (m *DecisionRepository) ListByAdventureID(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) ([]*models.Decision, error) {
	args := m.Called(ctx, querier, adventureID)
	if d, ok := args.Get(0).([]*models.Decision); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
