package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/podium/internal/database"
	"github.com/yourusername/podium/internal/models"
)

// defaultListLimit caps ListByRace when no limit is given
const defaultListLimit = 50

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Save inserts a prediction record
func (r *PostgresPredictionRepository) Save(ctx context.Context, record *models.PredictionRecord) error {
	if record == nil || record.Result == nil {
		return fmt.Errorf("prediction record with result is required")
	}

	payload, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to encode prediction result: %w", err)
	}

	query := `
		INSERT INTO predictions (id, race_id, model_version, chaos, chaos_seed, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		record.ID, record.RaceID, record.ModelVersion, record.Result.Weights.ChaosMode,
		record.Result.ChaosSeed, payload, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	return nil
}

// GetLatest returns the newest prediction for a race. An empty model
// version matches any version.
func (r *PostgresPredictionRepository) GetLatest(ctx context.Context, raceID, modelVersion string) (*models.PredictionRecord, error) {
	query := `
		SELECT id, race_id, model_version, result, created_at
		FROM predictions
		WHERE race_id = $1 AND ($2 = '' OR model_version = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	record, err := scanRecord(r.db.GetPool().QueryRow(ctx, query, raceID, modelVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}

	return record, nil
}

// ListByRace returns a race's predictions, newest first
func (r *PostgresPredictionRepository) ListByRace(ctx context.Context, raceID string, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, race_id, model_version, result, created_at
		FROM predictions
		WHERE race_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var records []*models.PredictionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return records, nil
}

// DeleteOlderThan keeps the newest keep predictions for a race and deletes
// the rest. keep must be positive; LIMIT 0 would empty the race.
func (r *PostgresPredictionRepository) DeleteOlderThan(ctx context.Context, raceID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("keep must be positive, got %d", keep)
	}

	query := `
		DELETE FROM predictions
		WHERE race_id = $1 AND id NOT IN (
			SELECT id FROM predictions WHERE race_id = $1 ORDER BY created_at DESC LIMIT $2
		)
	`

	tag, err := r.db.GetPool().Exec(ctx, query, raceID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune predictions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*models.PredictionRecord, error) {
	record := &models.PredictionRecord{}
	var payload []byte
	var createdAt time.Time
	if err := row.Scan(&record.ID, &record.RaceID, &record.ModelVersion, &payload, &createdAt); err != nil {
		return nil, err
	}

	result := &models.PredictionResult{}
	if err := json.Unmarshal(payload, result); err != nil {
		return nil, fmt.Errorf("failed to decode prediction result: %w", err)
	}
	record.Result = result
	record.CreatedAt = createdAt

	return record, nil
}
