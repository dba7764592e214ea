package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ interfaces.ScenarioRepository = (*pgScenarioRepository)(nil)

type pgScenarioRepository struct {
	logger *zap.Logger
}

func NewPgScenarioRepository(logger *zap.Logger) interfaces.ScenarioRepository {
	return &pgScenarioRepository{
		logger: logger.Named("PgScenarioRepo"),
	}
}

const insertScenarioQuery = `
INSERT INTO game_scenarios (
    id, adventure_id, sequence, prompt,
    choice_1, choice_2, choice_3, choice_4,
    result_1, result_2, result_3, result_4,
    delta_1, delta_2, delta_3, delta_4,
    next_1, next_2, next_3, next_4)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const getScenarioBySequenceQuery = `
SELECT id, adventure_id, sequence, prompt,
       choice_1, choice_2, choice_3, choice_4,
       result_1, result_2, result_3, result_4,
       delta_1, delta_2, delta_3, delta_4,
       next_1, next_2, next_3, next_4
FROM game_scenarios
WHERE adventure_id = $1 AND sequence = $2`

// CreateBatch inserts all nodes in one round trip.
func (r *pgScenarioRepository) CreateBatch(ctx context.Context, querier interfaces.DBTX, nodes []*models.ScenarioNode) error {
	if len(nodes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range nodes {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		args := []any{n.ID, n.AdventureID, n.Sequence, n.Prompt}
		var labels, results, deltas, nexts [models.MaxChoices]any
		for i, c := range n.Choices {
			if !c.Defined() {
				continue
			}
			labels[i] = c.Label
			results[i] = c.ResultText
			if !c.Delta.IsEmpty() {
				raw, err := json.Marshal(c.Delta)
				if err != nil {
					return fmt.Errorf("failed to marshal delta for sequence %d: %w", n.Sequence, err)
				}
				deltas[i] = raw
			}
			if c.NextSequence != nil {
				nexts[i] = *c.NextSequence
			}
		}
		args = append(args, labels[:]...)
		args = append(args, results[:]...)
		args = append(args, deltas[:]...)
		args = append(args, nexts[:]...)
		batch.Queue(insertScenarioQuery, args...)
	}

	br := querier.SendBatch(ctx, batch)
	for _, n := range nodes {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			r.logger.Error("Failed to insert scenario node", zap.Error(err),
				zap.Stringer("adventureID", n.AdventureID), zap.Int("sequence", n.Sequence))
			return fmt.Errorf("failed to insert scenario sequence %d: %w", n.Sequence, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close scenario batch: %w", err)
	}
	r.logger.Debug("Scenario nodes created", zap.Stringer("adventureID", nodes[0].AdventureID), zap.Int("count", len(nodes)))
	return nil
}

func (r *pgScenarioRepository) GetBySequence(ctx context.Context, querier interfaces.DBTX, adventureID uuid.UUID, sequence int) (*models.ScenarioNode, error) {
	logFields := []zap.Field{zap.Stringer("adventureID", adventureID), zap.Int("sequence", sequence)}

	n := &models.ScenarioNode{}
	var labels, results [models.MaxChoices]*string
	var deltas [models.MaxChoices][]byte
	var nexts [models.MaxChoices]*int
	err := querier.QueryRow(ctx, getScenarioBySequenceQuery, adventureID, sequence).Scan(
		&n.ID, &n.AdventureID, &n.Sequence, &n.Prompt,
		&labels[0], &labels[1], &labels[2], &labels[3],
		&results[0], &results[1], &results[2], &results[3],
		&deltas[0], &deltas[1], &deltas[2], &deltas[3],
		&nexts[0], &nexts[1], &nexts[2], &nexts[3],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Scenario node not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get scenario node", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to get scenario node: %w", err)
	}

	for i := range n.Choices {
		c := &n.Choices[i]
		if labels[i] != nil {
			c.Label = *labels[i]
		}
		if results[i] != nil {
			c.ResultText = *results[i]
		}
		c.NextSequence = nexts[i]
		if len(deltas[i]) > 0 {
			if err := json.Unmarshal(deltas[i], &c.Delta); err != nil {
				r.logger.Error("Stored stat delta is invalid", append(logFields, zap.Int("choice", i+1), zap.Error(err))...)
				return nil, fmt.Errorf("invalid stored delta for choice %d: %w", i+1, err)
			}
		}
	}
	return n, nil
}
