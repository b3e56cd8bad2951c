package repository

import (
	"context"

	"github.com/yourusername/podium/internal/models"
)

// PredictionRepository defines the interface for prediction data access
type PredictionRepository interface {
	Save(ctx context.Context, record *models.PredictionRecord) error
	GetLatest(ctx context.Context, raceID, modelVersion string) (*models.PredictionRecord, error)
	ListByRace(ctx context.Context, raceID string, limit int) ([]*models.PredictionRecord, error)
	DeleteOlderThan(ctx context.Context, raceID string, keep int) (int64, error)
}
