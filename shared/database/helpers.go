package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"adventure-server/shared/models"

	"github.com/jackc/pgx/v5/pgconn"
)

// toJSONB marshals v for a jsonb parameter. A nil build export is stored as SQL NULL.
func toJSONB(v any) ([]byte, error) {
	if export, ok := v.(*models.BuildExport); ok && export == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return data, nil
}

// buildExportFromJSONB decodes a nullable jsonb column into a build export.
func buildExportFromJSONB(data []byte) (*models.BuildExport, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var export models.BuildExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build export: %w", err)
	}
	return &export, nil
}

func isUniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr, true
	}
	return nil, false
}
