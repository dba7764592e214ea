package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ interfaces.AdventureRepository = (*pgAdventureRepository)(nil)

type pgAdventureRepository struct {
	logger *zap.Logger
}

func NewPgAdventureRepository(logger *zap.Logger) interfaces.AdventureRepository {
	return &pgAdventureRepository{
		logger: logger.Named("PgAdventureRepo"),
	}
}

const adventureColumns = `a.id, a.character_id, a.template_slug, a.status, a.current_stage, a.total_stages,
       a.result_data, a.created_at, a.updated_at, a.completed_at`

const createAdventureQuery = `
INSERT INTO adventures (id, character_id, template_slug, status, current_stage, total_stages, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

const getAdventureForUserQuery = `
SELECT ` + adventureColumns + `
FROM adventures a
JOIN characters c ON c.id = a.character_id
WHERE a.id = $1 AND c.user_id = $2`

const findInProgressAdventureQuery = `
SELECT ` + adventureColumns + `
FROM adventures a
WHERE a.character_id = $1 AND a.template_slug = $2 AND a.status = 'in_progress'
ORDER BY a.created_at DESC
LIMIT 1`

const listAdventuresByCharacterQuery = `
SELECT ` + adventureColumns + `
FROM adventures a
WHERE a.character_id = $1
ORDER BY a.created_at DESC`

const updateAdventureStageQuery = `
UPDATE adventures SET current_stage = $2, updated_at = NOW()
WHERE id = $1 AND status = 'in_progress'`

const completeAdventureQuery = `
UPDATE adventures
SET status = 'completed', current_stage = $2, result_data = $3, completed_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'in_progress'`

const deleteAdventureQuery = `DELETE FROM adventures WHERE id = $1`

func (r *pgAdventureRepository) Create(ctx context.Context, querier interfaces.DBTX, a *models.Adventure) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AdventureStatusInProgress
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := querier.Exec(ctx, createAdventureQuery,
		a.ID, a.CharacterID, a.TemplateSlug, a.Status, a.CurrentStage, a.TotalStages, now)
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			r.logger.Warn("Character already has an in-progress adventure for template",
				zap.Stringer("characterID", a.CharacterID), zap.String("template", a.TemplateSlug))
			return models.ErrAdventureInProgress
		}
		r.logger.Error("Failed to create adventure", zap.Error(err), zap.Stringer("characterID", a.CharacterID))
		return fmt.Errorf("failed to create adventure: %w", err)
	}
	r.logger.Info("Adventure created",
		zap.Stringer("adventureID", a.ID),
		zap.Stringer("characterID", a.CharacterID),
		zap.String("template", a.TemplateSlug))
	return nil
}

func (r *pgAdventureRepository) GetByIDForUser(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) (*models.Adventure, error) {
	logFields := []zap.Field{zap.Stringer("adventureID", id), zap.Stringer("userID", userID)}
	a, err := scanAdventure(querier.QueryRow(ctx, getAdventureForUserQuery, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Adventure not found for user", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get adventure", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get adventure %s: %w", id, err)
	}
	return a, nil
}

func (r *pgAdventureRepository) FindInProgress(ctx context.Context, querier interfaces.DBTX, characterID uuid.UUID, templateSlug string) (*models.Adventure, error) {
	a, err := scanAdventure(querier.QueryRow(ctx, findInProgressAdventureQuery, characterID, templateSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to find in-progress adventure", zap.Error(err), zap.Stringer("characterID", characterID))
		return nil, fmt.Errorf("failed to find in-progress adventure: %w", err)
	}
	return a, nil
}

func (r *pgAdventureRepository) ListByCharacterID(ctx context.Context, querier interfaces.DBTX, characterID uuid.UUID) ([]*models.Adventure, error) {
	var adventures []*models.Adventure
	if err := pgxscan.Select(ctx, querier, &adventures, listAdventuresByCharacterQuery, characterID); err != nil {
		r.logger.Error("Failed to list adventures", zap.Error(err), zap.Stringer("characterID", characterID))
		return nil, fmt.Errorf("failed to list adventures: %w", err)
	}
	if adventures == nil {
		adventures = []*models.Adventure{}
	}
	return adventures, nil
}

func (r *pgAdventureRepository) UpdateStage(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, stage int) error {
	tag, err := querier.Exec(ctx, updateAdventureStageQuery, id, stage)
	if err != nil {
		r.logger.Error("Failed to update adventure stage", zap.Error(err), zap.Stringer("adventureID", id))
		return fmt.Errorf("failed to update adventure stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAdventureCompleted
	}
	return nil
}

func (r *pgAdventureRepository) MarkCompleted(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, stage int, result *models.BuildExport) error {
	raw, err := toJSONB(result)
	if err != nil {
		return err
	}
	tag, err := querier.Exec(ctx, completeAdventureQuery, id, stage, raw)
	if err != nil {
		r.logger.Error("Failed to complete adventure", zap.Error(err), zap.Stringer("adventureID", id))
		return fmt.Errorf("failed to complete adventure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAdventureCompleted
	}
	r.logger.Info("Adventure completed", zap.Stringer("adventureID", id), zap.Bool("hasBuild", result != nil && result.Build != nil))
	return nil
}

func (r *pgAdventureRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteAdventureQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete adventure", zap.Error(err), zap.Stringer("adventureID", id))
		return fmt.Errorf("failed to delete adventure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanAdventure(row pgx.Row) (*models.Adventure, error) {
	a := &models.Adventure{}
	var result []byte
	err := row.Scan(&a.ID, &a.CharacterID, &a.TemplateSlug, &a.Status, &a.CurrentStage, &a.TotalStages,
		&result, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt)
	if err != nil {
		return nil, err
	}
	if a.ResultData, err = buildExportFromJSONB(result); err != nil {
		return nil, err
	}
	return a, nil
}
