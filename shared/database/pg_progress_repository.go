package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ interfaces.ProgressRepository = (*pgProgressRepository)(nil)

type pgProgressRepository struct {
	logger *zap.Logger
}

func NewPgProgressRepository(logger *zap.Logger) interfaces.ProgressRepository {
	return &pgProgressRepository{
		logger: logger.Named("PgProgressRepo"),
	}
}

const createProgressQuery = `
INSERT INTO player_scenario_progress (adventure_id, character_id, current_sequence, stats, version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const getProgressQuery = `
SELECT adventure_id, character_id, current_sequence, stats, version, updated_at
FROM player_scenario_progress
WHERE adventure_id = $1`

const getProgressForUpdateQuery = getProgressQuery + `
FOR UPDATE`

const updateProgressQuery = `
UPDATE player_scenario_progress
SET current_sequence = $2, stats = $3, version = version + 1, updated_at = $4
WHERE adventure_id = $1 AND version = $5
RETURNING version`

func (r *pgProgressRepository) Create(ctx context.Context, querier interfaces.DBTX, p *models.ProgressRecord) error {
	stats, err := json.Marshal(p.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	_, err = querier.Exec(ctx, createProgressQuery, p.AdventureID, p.CharacterID, p.CurrentSequence, stats, p.Version, p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create progress record", zap.Error(err), zap.Stringer("adventureID", p.AdventureID))
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	r.logger.Info("Progress record created", zap.Stringer("adventureID", p.AdventureID), zap.Any("sequence", p.CurrentSequence))
	return nil
}

func (r *pgProgressRepository) Get(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error) {
	return r.get(ctx, querier, getProgressQuery, adventureID)
}

func (r *pgProgressRepository) GetForUpdate(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID) (*models.ProgressRecord, error) {
	return r.get(ctx, querier, getProgressForUpdateQuery, adventureID)
}

func (r *pgProgressRepository) get(ctx context.Context, querier interfaces.DBTX, query string, adventureID uuid.UUID) (*models.ProgressRecord, error) {
	p := &models.ProgressRecord{}
	var stats []byte
	err := querier.QueryRow(ctx, query, adventureID).Scan(
		&p.AdventureID, &p.CharacterID, &p.CurrentSequence, &stats, &p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Progress record not found", zap.Stringer("adventureID", adventureID))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get progress record", zap.Error(err), zap.Stringer("adventureID", adventureID))
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	if err := json.Unmarshal(stats, &p.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats for adventure %s: %w", adventureID, err)
	}
	return p, nil
}

// Update writes p when its Version still matches the stored row and advances p.Version.
// A mismatch is reported as models.ErrStaleChoice.
func (r *pgProgressRepository) Update(ctx context.Context, querier interfaces.DBTX, p *models.ProgressRecord) error {
	stats, err := json.Marshal(p.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	now := time.Now().UTC()
	var version int
	err = querier.QueryRow(ctx, updateProgressQuery, p.AdventureID, p.CurrentSequence, stats, now, p.Version).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Progress record changed concurrently", zap.Stringer("adventureID", p.AdventureID), zap.Int("version", p.Version))
			return models.ErrStaleChoice
		}
		r.logger.Error("Failed to update progress record", zap.Error(err), zap.Stringer("adventureID", p.AdventureID))
		return fmt.Errorf("failed to update progress record: %w", err)
	}
	p.Version = version
	p.UpdatedAt = now
	return nil
}
