package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
)

// MockFieldSource mocks the baseline field source
type MockFieldSource struct {
	mock.Mock
}

func (m *MockFieldSource) GetField(ctx context.Context, raceID string) (*models.Field, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Field), args.Error(1)
}

func (m *MockFieldSource) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPredictionRepository mocks prediction persistence
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) Save(ctx context.Context, record *models.PredictionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPredictionRepository) GetLatest(ctx context.Context, raceID, modelVersion string) (*models.PredictionRecord, error) {
	args := m.Called(ctx, raceID, modelVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictionRecord), args.Error(1)
}

func (m *MockPredictionRepository) ListByRace(ctx context.Context, raceID string, limit int) ([]*models.PredictionRecord, error) {
	args := m.Called(ctx, raceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PredictionRecord), args.Error(1)
}

func (m *MockPredictionRepository) DeleteOlderThan(ctx context.Context, raceID string, keep int) (int64, error) {
	args := m.Called(ctx, raceID, keep)
	return args.Get(0).(int64), args.Error(1)
}

func testField(raceID string) *models.Field {
	comp := func(id, team string, p, quali, pace float64) *models.Competitor {
		return &models.Competitor{
			ID:     id,
			Team:   team,
			PModel: models.Float64(p),
			Features: map[string]*float64{
				models.FeatureQualifyingTime:        models.Float64(quali),
				models.FeatureRainProbability:       models.Float64(0.2),
				models.FeatureTemperature:           models.Float64(24),
				models.FeatureTeamPerformance:       models.Float64(p),
				models.FeatureCleanAirPace:          models.Float64(pace),
				models.FeatureAveragePositionChange: models.Float64(0.5),
			},
		}
	}
	return &models.Field{RaceID: raceID, ModelVersion: "xgb-3", Competitors: []*models.Competitor{
		comp("VER", "Red Bull", 0.45, 86.9, 0.95),
		comp("LEC", "Ferrari", 0.30, 87.0, 0.91),
		comp("NOR", "McLaren", 0.25, 87.2, 0.90),
	}}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestService(t *testing.T, source *MockFieldSource, repo *MockPredictionRepository, withCache bool) *PredictionService {
	t.Helper()
	cfg := Config{
		Source: source,
		Engine: overlay.NewEngine(overlay.WithLogger(quietLogger())),
		Logger: quietLogger(),
	}
	if repo != nil {
		cfg.Repository = repo
	}
	if withCache {
		cfg.Cache = NewPredictionCache(time.Minute, 100)
	}
	svc, err := NewPredictionService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewPredictionServiceDefaults(t *testing.T) {
	_, err := NewPredictionService(Config{})
	assert.Error(t, err)

	svc, err := NewPredictionService(Config{Engine: overlay.NewEngine()})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWeightVector(), svc.DefaultWeights())

	_, err = NewPredictionService(Config{
		Engine:         overlay.NewEngine(),
		DefaultWeights: models.WeightVector{TeamForm: 2},
	})
	assert.ErrorIs(t, err, models.ErrInvalidWeight)
}

func TestPredictRacePersistsAndCaches(t *testing.T) {
	source := new(MockFieldSource)
	repo := new(MockPredictionRepository)
	svc := newTestService(t, source, repo, true)
	ctx := context.Background()

	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(r *models.PredictionRecord) bool {
		return r.RaceID == "monza-2024" && r.ModelVersion == "xgb-3" && r.Result != nil
	})).Return(nil).Once()

	first, err := svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	assert.Equal(t, "VER", first.Entries[0].ID)
	assert.Nil(t, first.ChaosSeed)

	second, err := svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	source.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestPredictRaceUnseededChaosSkipsCache(t *testing.T) {
	source := new(MockFieldSource)
	svc := newTestService(t, source, nil, true)
	ctx := context.Background()

	weights := models.DefaultWeightVector()
	weights.ChaosMode = true
	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil).Twice()

	first, err := svc.PredictRace(ctx, "monza-2024", weights, nil)
	require.NoError(t, err)
	second, err := svc.PredictRace(ctx, "monza-2024", weights, nil)
	require.NoError(t, err)

	require.NotNil(t, first.ChaosSeed)
	require.NotNil(t, second.ChaosSeed)
	source.AssertExpectations(t)
}

func TestPredictRaceSeededChaosIsReproducible(t *testing.T) {
	source := new(MockFieldSource)
	svc := newTestService(t, source, nil, false)
	ctx := context.Background()

	weights := models.DefaultWeightVector()
	weights.ChaosMode = true
	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil)

	first, err := svc.PredictRace(ctx, "monza-2024", weights, int64Ptr(99))
	require.NoError(t, err)
	second, err := svc.PredictRace(ctx, "monza-2024", weights, int64Ptr(99))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(99), *first.ChaosSeed)
}

func TestPredictRacePersistFailureStillReturnsResult(t *testing.T) {
	source := new(MockFieldSource)
	repo := new(MockPredictionRepository)
	svc := newTestService(t, source, repo, false)
	ctx := context.Background()

	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil)
	repo.On("Save", ctx, mock.Anything).Return(errors.New("connection reset"))

	result, err := svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 3)
}

func TestPredictRaceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid weights are rejected before fetching", func(t *testing.T) {
		source := new(MockFieldSource)
		svc := newTestService(t, source, nil, false)

		_, err := svc.PredictRace(ctx, "monza-2024", models.WeightVector{CleanAirPace: -0.1}, nil)
		assert.ErrorIs(t, err, models.ErrInvalidWeight)
		source.AssertNotCalled(t, "GetField", mock.Anything, mock.Anything)
	})

	t.Run("baseline errors are wrapped", func(t *testing.T) {
		source := new(MockFieldSource)
		svc := newTestService(t, source, nil, false)
		source.On("GetField", ctx, "unknown").Return(nil, fmt.Errorf("%w: unknown", baseline.ErrRaceNotFound))

		_, err := svc.PredictRace(ctx, "unknown", models.DefaultWeightVector(), nil)
		assert.ErrorIs(t, err, baseline.ErrRaceNotFound)
	})

	t.Run("missing source", func(t *testing.T) {
		svc, err := NewPredictionService(Config{Engine: overlay.NewEngine(), Logger: quietLogger()})
		require.NoError(t, err)

		_, err = svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
		assert.ErrorIs(t, err, baseline.ErrBaselineUnavailable)
	})
}

func TestEvaluate(t *testing.T) {
	svc := newTestService(t, new(MockFieldSource), nil, false)

	result, err := svc.Evaluate(context.Background(), testField("custom"), models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", result.RaceID)

	_, err = svc.Evaluate(context.Background(), nil, models.DefaultWeightVector(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidField)

	field := testField("custom")
	field.Competitors[1].PModel = nil
	_, err = svc.Evaluate(context.Background(), field, models.DefaultWeightVector(), nil)
	assert.ErrorIs(t, err, models.ErrMissingBaseline)
}

func TestLatestAndHistory(t *testing.T) {
	ctx := context.Background()

	disabled := newTestService(t, new(MockFieldSource), nil, false)
	_, err := disabled.Latest(ctx, "monza-2024", "")
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
	_, err = disabled.History(ctx, "monza-2024", 5)
	assert.ErrorIs(t, err, ErrPersistenceDisabled)

	repo := new(MockPredictionRepository)
	svc := newTestService(t, new(MockFieldSource), repo, false)
	record := models.NewPredictionRecord(sampleResult("monza-2024"))
	repo.On("GetLatest", ctx, "monza-2024", "v1").Return(record, nil)
	repo.On("ListByRace", ctx, "monza-2024", 5).Return([]*models.PredictionRecord{record}, nil)

	got, err := svc.Latest(ctx, "monza-2024", "v1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)

	list, err := svc.History(ctx, "monza-2024", 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWarmUp(t *testing.T) {
	source := new(MockFieldSource)
	svc := newTestService(t, source, nil, true)
	ctx := context.Background()

	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil)
	source.On("GetField", ctx, "broken").Return(nil, baseline.ErrBaselineUnavailable)

	assert.Equal(t, 1, svc.WarmUp(ctx, []string{"monza-2024", "broken"}))

	// The warmed result is now served without another fetch.
	_, err := svc.PredictRace(ctx, "monza-2024", svc.DefaultWeights(), nil)
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "GetField", 2)
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		err    error
		reason string
	}{
		{nil, ""},
		{&models.InvalidWeightError{Weight: "team_form", Value: 2}, "invalid_weight"},
		{&models.MissingBaselineError{CompetitorID: "VER"}, "missing_baseline"},
		{&models.InvalidFieldError{Reason: "empty"}, "invalid_field"},
		{fmt.Errorf("%w: %w", baseline.ErrInvalidBaselineResponse, &models.InvalidFieldError{}), "invalid_baseline_response"},
		{baseline.ErrCircuitOpen, "baseline_unavailable"},
		{baseline.ErrRaceNotFound, "race_not_found"},
		{models.ErrNotFound, "not_found"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.reason, ErrorReason(tt.err))
	}
}

func TestPredictRacePrunesStoredPredictions(t *testing.T) {
	source := new(MockFieldSource)
	repo := new(MockPredictionRepository)
	svc, err := NewPredictionService(Config{
		Source:        source,
		Engine:        overlay.NewEngine(overlay.WithLogger(quietLogger())),
		Repository:    repo,
		RetainPerRace: 5,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	source.On("GetField", ctx, "spa-2024").Return(testField("spa-2024"), nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	repo.On("DeleteOlderThan", ctx, "spa-2024", 5).Return(int64(2), nil).Once()

	_, err = svc.PredictRace(ctx, "spa-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	// A prune failure is logged and does not fail the request.
	repo.On("DeleteOlderThan", ctx, "spa-2024", 5).Return(int64(0), errors.New("timeout")).Once()
	_, err = svc.PredictRace(ctx, "spa-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "DeleteOlderThan", 2)
}

func TestPredictRaceWithoutRetentionDoesNotPrune(t *testing.T) {
	source := new(MockFieldSource)
	repo := new(MockPredictionRepository)
	svc := newTestService(t, source, repo, false)
	ctx := context.Background()

	source.On("GetField", ctx, "spa-2024").Return(testField("spa-2024"), nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)

	_, err := svc.PredictRace(ctx, "spa-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	repo.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything, mock.Anything)
}

func TestBreakdown(t *testing.T) {
	source := new(MockFieldSource)
	svc := newTestService(t, source, nil, false)
	ctx := context.Background()

	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil)

	scored, err := svc.Breakdown(ctx, "monza-2024", models.DefaultWeightVector())
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, "VER", scored[0].ID)
	assert.Len(t, scored[0].Contributions, len(models.Factors))

	_, err = svc.Breakdown(ctx, "monza-2024", models.WeightVector{TeamForm: 3})
	assert.ErrorIs(t, err, models.ErrInvalidWeight)

	source.On("GetField", ctx, "missing").Return(nil, baseline.ErrRaceNotFound)
	_, err = svc.Breakdown(ctx, "missing", models.DefaultWeightVector())
	assert.ErrorIs(t, err, baseline.ErrRaceNotFound)
}

func TestClearCache(t *testing.T) {
	source := new(MockFieldSource)
	svc := newTestService(t, source, nil, true)
	ctx := context.Background()

	source.On("GetField", ctx, "monza-2024").Return(testField("monza-2024"), nil)

	_, err := svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ClearCache())

	_, err = svc.PredictRace(ctx, "monza-2024", models.DefaultWeightVector(), nil)
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "GetField", 2)

	assert.Equal(t, 0, newTestService(t, source, nil, false).ClearCache())
}
