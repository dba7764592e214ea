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

var _ interfaces.CharacterRepository = (*pgCharacterRepository)(nil)

type pgCharacterRepository struct {
	logger *zap.Logger
}

func NewPgCharacterRepository(logger *zap.Logger) interfaces.CharacterRepository {
	return &pgCharacterRepository{
		logger: logger.Named("PgCharacterRepo"),
	}
}

const characterColumns = `id, user_id, name, class, race, gender, level, avatar_ref, character_data, created_at, updated_at`

const createCharacterQuery = `
INSERT INTO characters (id, user_id, name, class, race, gender, level, avatar_ref, character_data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

const getCharacterByIDQuery = `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`

const getCharacterByIDForUserQuery = `SELECT ` + characterColumns + ` FROM characters WHERE id = $1 AND user_id = $2`

const listCharactersByUserQuery = `SELECT ` + characterColumns + ` FROM characters WHERE user_id = $1 ORDER BY created_at DESC`

const deleteCharacterQuery = `DELETE FROM characters WHERE id = $1 AND user_id = $2`

const incrementCharacterLevelQuery = `UPDATE characters SET level = level + 1, updated_at = NOW() WHERE id = $1`

const updateCharacterDataQuery = `UPDATE characters SET character_data = $2, updated_at = NOW() WHERE id = $1`

const updateCharacterAvatarQuery = `UPDATE characters SET avatar_ref = $2, updated_at = NOW() WHERE id = $1`

func (r *pgCharacterRepository) Create(ctx context.Context, querier interfaces.DBTX, c *models.Character) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Level == 0 {
		c.Level = 1
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	data, err := toJSONB(c.CharacterData)
	if err != nil {
		return err
	}
	_, err = querier.Exec(ctx, createCharacterQuery,
		c.ID, c.UserID, c.Name, c.Class, c.Race, c.Gender, c.Level, c.AvatarRef, data, now)
	if err != nil {
		r.logger.Error("Failed to create character", zap.Error(err), zap.Stringer("userID", c.UserID))
		return fmt.Errorf("failed to create character: %w", err)
	}
	r.logger.Info("Character created", zap.Stringer("characterID", c.ID), zap.Stringer("userID", c.UserID))
	return nil
}

func (r *pgCharacterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Character, error) {
	logFields := []zap.Field{zap.Stringer("characterID", id)}
	c, err := r.scanOne(querier.QueryRow(ctx, getCharacterByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Character not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get character", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get character %s: %w", id, err)
	}
	return c, nil
}

func (r *pgCharacterRepository) GetByIDForUser(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) (*models.Character, error) {
	logFields := []zap.Field{zap.Stringer("characterID", id), zap.Stringer("userID", userID)}
	c, err := r.scanOne(querier.QueryRow(ctx, getCharacterByIDForUserQuery, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Character not found for user", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get character for user", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get character %s: %w", id, err)
	}
	return c, nil
}

func (r *pgCharacterRepository) ListByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) ([]*models.Character, error) {
	var characters []*models.Character
	if err := pgxscan.Select(ctx, querier, &characters, listCharactersByUserQuery, userID); err != nil {
		r.logger.Error("Failed to list characters", zap.Error(err), zap.Stringer("userID", userID))
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	if characters == nil {
		characters = []*models.Character{}
	}
	return characters, nil
}

func (r *pgCharacterRepository) Delete(ctx context.Context, querier interfaces.DBTX, id, userID uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteCharacterQuery, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete character", zap.Error(err), zap.Stringer("characterID", id))
		return fmt.Errorf("failed to delete character %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Character deleted", zap.Stringer("characterID", id), zap.Stringer("userID", userID))
	return nil
}

func (r *pgCharacterRepository) IncrementLevel(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	return r.execUpdate(ctx, querier, "increment level", incrementCharacterLevelQuery, id)
}

func (r *pgCharacterRepository) UpdateCharacterData(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, data *models.BuildExport) error {
	raw, err := toJSONB(data)
	if err != nil {
		return err
	}
	return r.execUpdate(ctx, querier, "update character data", updateCharacterDataQuery, id, raw)
}

func (r *pgCharacterRepository) UpdateAvatarRef(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, avatarRef string) error {
	return r.execUpdate(ctx, querier, "update avatar", updateCharacterAvatarQuery, id, avatarRef)
}

func (r *pgCharacterRepository) execUpdate(ctx context.Context, querier interfaces.DBTX, op, query string, id uuid.UUID, args ...any) error {
	tag, err := querier.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err), zap.Stringer("characterID", id))
		return fmt.Errorf("failed to %s for character %s: %w", op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgCharacterRepository) scanOne(row pgx.Row) (*models.Character, error) {
	c := &models.Character{}
	var data []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Class, &c.Race, &c.Gender, &c.Level,
		&c.AvatarRef, &data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.CharacterData, err = buildExportFromJSONB(data); err != nil {
		return nil, err
	}
	return c, nil
}
