package overlay

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/models"
)

// Engine runs the full overlay pipeline for one field at a time. It holds
// configuration only, so a single Engine is safe for concurrent use.
type Engine struct {
	chaosStdDev float64
	floor       float64
	entropy     func() int64
	logger      *logrus.Entry
}

// Option configures an Engine
type Option func(*Engine)

// WithChaosStdDev sets the standard deviation of chaos noise
func WithChaosStdDev(stdDev float64) Option {
	return func(e *Engine) {
		if stdDev > 0 {
			e.chaosStdDev = stdDev
		}
	}
}

// WithProbabilityFloor sets the minimum strength after shifting
func WithProbabilityFloor(floor float64) Option {
	return func(e *Engine) {
		if floor > 0 {
			e.floor = floor
		}
	}
}

// WithEntropy replaces the seed generator used for unseeded chaos requests
func WithEntropy(entropy func() int64) Option {
	return func(e *Engine) {
		if entropy != nil {
			e.entropy = entropy
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithField("component", "overlay_engine")
		}
	}
}

// NewEngine creates an engine with default noise and floor settings
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		chaosStdDev: DefaultChaosStdDev,
		floor:       DefaultProbabilityFloor,
		entropy:     CryptoSeed,
		logger:      logrus.StandardLogger().WithField("component", "overlay_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig builds an engine from the engine section of the app config
func FromConfig(cfg *config.EngineConfig, logger *logrus.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine config is required")
	}
	if cfg.ChaosStdDev < 0 {
		return nil, fmt.Errorf("chaos_std_dev must be non-negative, got %v", cfg.ChaosStdDev)
	}
	if cfg.ProbabilityFloor < 0 {
		return nil, fmt.Errorf("probability_floor must be non-negative, got %v", cfg.ProbabilityFloor)
	}

	return NewEngine(
		WithChaosStdDev(cfg.ChaosStdDev),
		WithProbabilityFloor(cfg.ProbabilityFloor),
		WithLogger(logger),
	), nil
}

// ChaosStdDev returns the configured noise standard deviation
func (e *Engine) ChaosStdDev() float64 {
	return e.chaosStdDev
}

// ProbabilityFloor returns the configured strength floor
func (e *Engine) ProbabilityFloor() float64 {
	return e.floor
}

type predictRequest struct {
	seed   *int64
	source RandomSource
}

// PredictOption configures a single Predict call
type PredictOption func(*predictRequest)

// WithSeed makes chaos noise reproducible for this request
func WithSeed(seed int64) PredictOption {
	return func(r *predictRequest) {
		s := seed
		r.seed = &s
	}
}

// WithRandomSource supplies the noise source directly. The result carries no
// seed in that case.
func WithRandomSource(src RandomSource) PredictOption {
	return func(r *predictRequest) {
		r.source = src
	}
}

// Predict produces a complete PredictionResult for the field, or an error
// and no result at all.
func (e *Engine) Predict(field *models.Field, weights models.WeightVector, opts ...PredictOption) (*models.PredictionResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}

	req := &predictRequest{}
	for _, opt := range opts {
		opt(req)
	}

	table, err := NormalizeFeatures(field, models.FeatureNames)
	if err != nil {
		return nil, err
	}

	scored, err := ApplyWeights(field, table, weights)
	if err != nil {
		return nil, err
	}

	var chaosSeed *int64
	if weights.ChaosMode {
		src := req.source
		if src == nil {
			seed := e.entropy()
			if req.seed != nil {
				seed = *req.seed
			}
			chaosSeed = &seed
			src = NewSeededSource(seed)
		}
		if err := InjectChaos(scored, true, src, e.chaosStdDev); err != nil {
			return nil, fmt.Errorf("failed to inject chaos: %w", err)
		}
	}

	scores := make([]float64, len(scored))
	for i, sc := range scored {
		scores[i] = sc.Score()
		if math.IsNaN(scores[i]) || math.IsInf(scores[i], 0) {
			return nil, &models.InvalidFieldError{
				RaceID:       field.RaceID,
				CompetitorID: sc.ID,
				Reason:       "score is not finite",
			}
		}
	}
	strengths := Strengths(scores, e.floor)
	win := WinProbabilities(strengths)

	var top3 []float64
	if len(scored) < PodiumPositions {
		// Fewer than three starters: everyone finishes on the podium.
		e.logger.WithFields(logrus.Fields{
			"race_id":    field.RaceID,
			"field_size": field.Size(),
		}).Debug("Field smaller than podium, top-3 probability set to 1")
		top3 = make([]float64, len(scored))
		for i := range top3 {
			top3[i] = 1
		}
	} else {
		top3, err = TopKProbabilities(strengths, PodiumPositions)
		if err != nil {
			return nil, fmt.Errorf("failed to compute podium probabilities: %w", err)
		}
	}

	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return win[order[a]] > win[order[b]]
	})

	entries := make([]models.PredictionEntry, 0, len(order))
	for _, i := range order {
		entries = append(entries, models.PredictionEntry{
			ID:              scored[i].ID,
			Team:            scored[i].Team,
			WinProbability:  win[i],
			Top3Probability: top3[i],
		})
	}

	result := &models.PredictionResult{
		RaceID:       field.RaceID,
		ModelVersion: field.ModelVersion,
		Entries:      entries,
		Explanation:  Explain(scored[order[0]], weights.ChaosMode),
		Weights:      weights,
		ChaosSeed:    chaosSeed,
	}

	e.logger.WithFields(logrus.Fields{
		"race_id":    field.RaceID,
		"field_size": field.Size(),
		"chaos":      weights.ChaosMode,
		"leader":     entries[0].ID,
	}).Debug("Prediction computed")

	return result, nil
}

// Breakdown returns the scored competitors for a field without normalising,
// in field order. It is used to inspect how each weight moved a score.
func (e *Engine) Breakdown(field *models.Field, weights models.WeightVector) ([]*ScoredCompetitor, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}
	table, err := NormalizeFeatures(field, models.FeatureNames)
	if err != nil {
		return nil, err
	}
	return ApplyWeights(field, table, weights)
}
