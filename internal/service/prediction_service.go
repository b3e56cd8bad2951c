// Package service ties the baseline source, the overlay engine, persistence
// and caching together into prediction workflows.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
	"github.com/yourusername/podium/internal/repository"
)

// Config holds the collaborators of a PredictionService. Repository and
// Cache are optional. RetainPerRace > 0 prunes stored predictions for a race
// down to that many after each save.
type Config struct {
	Source         baseline.FieldSource
	Engine         *overlay.Engine
	Repository     repository.PredictionRepository
	Cache          *PredictionCache
	DefaultWeights models.WeightVector
	RetainPerRace  int
	Logger         *logrus.Logger
}

// PredictionService produces, caches and records predictions
type PredictionService struct {
	source         baseline.FieldSource
	engine         *overlay.Engine
	repo           repository.PredictionRepository
	cache          *PredictionCache
	defaultWeights models.WeightVector
	retainPerRace  int
	logger         *logrus.Entry
	predLogger     *logger.PredictionLogger
}

// NewPredictionService creates a new prediction service
func NewPredictionService(cfg Config) (*PredictionService, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("overlay engine is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	defaults := cfg.DefaultWeights
	if defaults.IsZero() && !defaults.ChaosMode {
		defaults = models.DefaultWeightVector()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default weights: %w", err)
	}

	return &PredictionService{
		source:         cfg.Source,
		engine:         cfg.Engine,
		repo:           cfg.Repository,
		cache:          cfg.Cache,
		defaultWeights: defaults,
		retainPerRace:  cfg.RetainPerRace,
		logger:         log.WithField("component", "prediction_service"),
		predLogger:     logger.NewPredictionLogger(log),
	}, nil
}

// DefaultWeights returns the weights used when a request carries none
func (s *PredictionService) DefaultWeights() models.WeightVector {
	return s.defaultWeights
}

// PredictRace fetches the baseline field for a race and overlays the weights.
// A fresh result is persisted when a repository is configured.
func (s *PredictionService) PredictRace(ctx context.Context, raceID string, weights models.WeightVector, seed *int64) (*models.PredictionResult, error) {
	start := time.Now()

	if err := weights.Validate(); err != nil {
		return nil, s.fail(raceID, err)
	}
	if s.source == nil {
		return nil, s.fail(raceID, fmt.Errorf("%w: no field source configured", baseline.ErrBaselineUnavailable))
	}

	key := CacheKey{RaceID: raceID, ModelVersion: latestModelVersion, Weights: weights, Seed: seed}
	if cached := s.fromCache(key); cached != nil {
		s.observe(cached, true, start)
		return cached, nil
	}

	field, err := s.source.GetField(ctx, raceID)
	if err != nil {
		return nil, s.fail(raceID, fmt.Errorf("failed to fetch field: %w", err))
	}

	result, err := s.engine.Predict(field, weights, predictOptions(seed)...)
	if err != nil {
		return nil, s.fail(raceID, err)
	}

	s.persist(ctx, result)
	s.store(key, result)
	s.observe(result, false, start)

	return result, nil
}

// Evaluate overlays the weights on a caller-supplied field. Nothing is fetched
// or persisted.
func (s *PredictionService) Evaluate(ctx context.Context, field *models.Field, weights models.WeightVector, seed *int64) (*models.PredictionResult, error) {
	start := time.Now()

	if field == nil {
		return nil, s.fail("", &models.InvalidFieldError{Reason: "field is required"})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.engine.Predict(field, weights, predictOptions(seed)...)
	if err != nil {
		return nil, s.fail(field.RaceID, err)
	}

	s.observe(result, false, start)
	return result, nil
}

// Breakdown fetches the field for a race and returns each competitor's score
// with its per-factor contributions, before chaos and normalisation.
func (s *PredictionService) Breakdown(ctx context.Context, raceID string, weights models.WeightVector) ([]*overlay.ScoredCompetitor, error) {
	if err := weights.Validate(); err != nil {
		return nil, s.fail(raceID, err)
	}
	if s.source == nil {
		return nil, s.fail(raceID, fmt.Errorf("%w: no field source configured", baseline.ErrBaselineUnavailable))
	}

	field, err := s.source.GetField(ctx, raceID)
	if err != nil {
		return nil, s.fail(raceID, fmt.Errorf("failed to fetch field: %w", err))
	}

	scored, err := s.engine.Breakdown(field, weights)
	if err != nil {
		return nil, s.fail(raceID, err)
	}
	return scored, nil
}

// Latest returns the most recent stored prediction for a race
func (s *PredictionService) Latest(ctx context.Context, raceID, modelVersion string) (*models.PredictionRecord, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.GetLatest(ctx, raceID, modelVersion)
}

// History lists stored predictions for a race, newest first
func (s *PredictionService) History(ctx context.Context, raceID string, limit int) ([]*models.PredictionRecord, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.ListByRace(ctx, raceID, limit)
}

// WarmUp computes default-weight predictions for each race so the first
// dashboard request is served from cache. It returns how many succeeded.
func (s *PredictionService) WarmUp(ctx context.Context, raceIDs []string) int {
	start := time.Now()
	weights := s.defaultWeights
	weights.ChaosMode = false

	succeeded := 0
	for _, raceID := range raceIDs {
		if ctx.Err() != nil {
			break
		}
		if s.cache != nil {
			s.cache.InvalidateRace(raceID)
		}
		if _, err := s.PredictRace(ctx, raceID, weights, nil); err != nil {
			metrics.RecordWarmup(false)
			continue
		}
		metrics.RecordWarmup(true)
		succeeded++
	}

	s.predLogger.LogWarmup(len(raceIDs), succeeded, time.Since(start))
	return succeeded
}

// ClearCache drops every cached result, for example after the baseline model
// has been retrained. It returns how many entries were removed.
func (s *PredictionService) ClearCache() int {
	if s.cache == nil {
		return 0
	}
	removed := s.cache.ItemCount()
	s.cache.Clear()
	s.predLogger.LogCacheEvent("clear", "*", 0)
	return removed
}

// Health checks the baseline source
func (s *PredictionService) Health(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("%w: no field source configured", baseline.ErrBaselineUnavailable)
	}
	return s.source.Health(ctx)
}

func predictOptions(seed *int64) []overlay.PredictOption {
	if seed == nil {
		return nil
	}
	return []overlay.PredictOption{overlay.WithSeed(*seed)}
}

func (s *PredictionService) fromCache(key CacheKey) *models.PredictionResult {
	if s.cache == nil || !key.Cacheable() {
		return nil
	}
	result := s.cache.Get(key)
	if result != nil {
		s.predLogger.LogCacheEvent("hit", key.String(), s.cache.ItemCount())
	}
	return result
}

func (s *PredictionService) store(key CacheKey, result *models.PredictionResult) {
	if s.cache == nil {
		return
	}
	if s.cache.Set(key, result) {
		s.predLogger.LogCacheEvent("store", key.String(), s.cache.ItemCount())
	}
}

func (s *PredictionService) persist(ctx context.Context, result *models.PredictionResult) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, models.NewPredictionRecord(result)); err != nil {
		metrics.RecordPredictionError("persist")
		s.logger.WithError(err).WithField("race_id", result.RaceID).Warn("Failed to persist prediction")
		return
	}

	if s.retainPerRace <= 0 {
		return
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, result.RaceID, s.retainPerRace)
	if err != nil {
		s.logger.WithError(err).WithField("race_id", result.RaceID).Warn("Failed to prune stored predictions")
		return
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"race_id": result.RaceID,
			"deleted": deleted,
		}).Debug("Pruned stored predictions")
	}
}

func (s *PredictionService) observe(result *models.PredictionResult, cacheHit bool, start time.Time) {
	latency := time.Since(start)
	metrics.RecordPrediction(result.Weights.ChaosMode, cacheHit, len(result.Entries), latency)
	s.predLogger.LogPrediction(result, cacheHit, latency)
}

func (s *PredictionService) fail(raceID string, err error) error {
	reason := ErrorReason(err)
	metrics.RecordPredictionError(reason)
	s.predLogger.LogPredictionError(raceID, reason, err)
	return err
}
