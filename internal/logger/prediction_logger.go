package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/models"
)

// PredictionLogger provides dedicated logging for prediction requests.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// LogPrediction logs a completed prediction.
func (pl *PredictionLogger) LogPrediction(result *models.PredictionResult, cacheHit bool, latency time.Duration) {
	fields := logrus.Fields{
		"race_id":       result.RaceID,
		"model_version": result.ModelVersion,
		"field_size":    len(result.Entries),
		"chaos":         result.Weights.ChaosMode,
		"cache_hit":     cacheHit,
		"latency_ms":    float64(latency.Microseconds()) / 1000,
	}
	if leader, ok := result.Leader(); ok {
		fields["leader"] = leader.ID
		fields["leader_win_probability"] = leader.WinProbability
	}
	if result.ChaosSeed != nil {
		fields["chaos_seed"] = *result.ChaosSeed
	}
	pl.WithFields(fields).Info("Prediction completed")
}

// LogPredictionError logs a rejected or failed prediction request.
func (pl *PredictionLogger) LogPredictionError(raceID string, reason string, err error) {
	pl.WithFields(logrus.Fields{
		"race_id": raceID,
		"reason":  reason,
	}).WithError(err).Warn("Prediction failed")
}

// LogCacheEvent logs prediction cache activity.
func (pl *PredictionLogger) LogCacheEvent(event, key string, size int) {
	pl.WithFields(logrus.Fields{
		"event":      event,
		"cache_key":  key,
		"cache_size": size,
	}).Debug("Prediction cache event")
}

// LogWarmup logs the outcome of a scheduled warm-up run.
func (pl *PredictionLogger) LogWarmup(races, succeeded int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"races":       races,
		"succeeded":   succeeded,
		"duration_ms": duration.Milliseconds(),
	}).Info("Prediction warm-up finished")
}
