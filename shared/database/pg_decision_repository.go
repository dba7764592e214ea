package database

import (
	"context"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ interfaces.DecisionRepository = (*pgDecisionRepository)(nil)

type pgDecisionRepository struct {
	logger *zap.Logger
}

func NewPgDecisionRepository(logger *zap.Logger) interfaces.DecisionRepository {
	return &pgDecisionRepository{
		logger: logger.Named("PgDecisionRepo"),
	}
}

const createDecisionQuery = `
INSERT INTO decisions (id, adventure_id, character_id, scenario_id, choice_index, stats_before, stats_after, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listDecisionsQuery = `
SELECT id, adventure_id, character_id, scenario_id, choice_index, stats_before, stats_after, created_at
FROM decisions
WHERE adventure_id = $1
ORDER BY created_at ASC, id ASC`

func (r *pgDecisionRepository) Create(ctx context.Context, querier interfaces.DBTX, d *models.Decision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	before, err := toJSONB(d.StatsBefore)
	if err != nil {
		return err
	}
	after, err := toJSONB(d.StatsAfter)
	if err != nil {
		return err
	}
	_, err = querier.Exec(ctx, createDecisionQuery,
		d.ID, d.AdventureID, d.CharacterID, d.ScenarioID, d.ChoiceIndex, before, after, d.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to record decision", zap.Error(err),
			zap.Stringer("adventureID", d.AdventureID), zap.Int("choice", d.ChoiceIndex))
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

func (r *pgDecisionRepository) ListByAdventureID(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) ([]*models.Decision, error) {
	var decisions []*models.Decision
	if err := pgxscan.Select(ctx, querier, &decisions, listDecisionsQuery, adventureID); err != nil {
		r.logger.Error("Failed to list decisions", zap.Error(err), zap.Stringer("adventureID", adventureID))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	if decisions == nil {
		decisions = []*models.Decision{}
	}
	return decisions, nil
}
