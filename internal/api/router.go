// Package api exposes the prediction service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
)

// Predictor is the part of the prediction service the API depends on
type Predictor interface {
	PredictRace(ctx context.Context, raceID string, weights models.WeightVector, seed *int64) (*models.PredictionResult, error)
	Evaluate(ctx context.Context, field *models.Field, weights models.WeightVector, seed *int64) (*models.PredictionResult, error)
	Breakdown(ctx context.Context, raceID string, weights models.WeightVector) ([]*overlay.ScoredCompetitor, error)
	Latest(ctx context.Context, raceID, modelVersion string) (*models.PredictionRecord, error)
	History(ctx context.Context, raceID string, limit int) ([]*models.PredictionRecord, error)
	DefaultWeights() models.WeightVector
}

// RouterConfig holds HTTP-level settings
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the API router
func NewRouter(p Predictor, cfg RouterConfig, logger *logrus.Logger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Metrics)
	if cfg.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	predictions := NewPredictionsHandler(p, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/weights/defaults", predictions.DefaultWeights)

		r.Post("/predictions/evaluate", predictions.Evaluate)
		r.Post("/predictions/{raceID}", predictions.Predict)
		r.Post("/predictions/{raceID}/breakdown", predictions.Breakdown)
		r.Get("/predictions/{raceID}/latest", predictions.Latest)
		r.Get("/predictions/{raceID}/history", predictions.History)
	})

	return r
}
