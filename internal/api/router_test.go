package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
	"github.com/yourusername/podium/internal/service"
)

type fakePredictor struct {
	engine      *overlay.Engine
	field       *models.Field
	fieldErr    error
	records     []*models.PredictionRecord
	lastWeights models.WeightVector
	lastSeed    *int64
	lastLimit   int
}

func (f *fakePredictor) PredictRace(_ context.Context, raceID string, weights models.WeightVector, seed *int64) (*models.PredictionResult, error) {
	f.lastWeights, f.lastSeed = weights, seed
	if f.fieldErr != nil {
		return nil, f.fieldErr
	}
	return f.Evaluate(context.Background(), f.field, weights, seed)
}

func (f *fakePredictor) Evaluate(_ context.Context, field *models.Field, weights models.WeightVector, seed *int64) (*models.PredictionResult, error) {
	f.lastWeights, f.lastSeed = weights, seed
	var opts []overlay.PredictOption
	if seed != nil {
		opts = append(opts, overlay.WithSeed(*seed))
	}
	return f.engine.Predict(field, weights, opts...)
}

func (f *fakePredictor) Breakdown(_ context.Context, raceID string, weights models.WeightVector) ([]*overlay.ScoredCompetitor, error) {
	f.lastWeights = weights
	if f.fieldErr != nil {
		return nil, f.fieldErr
	}
	return f.engine.Breakdown(f.field, weights)
}

func (f *fakePredictor) Latest(_ context.Context, raceID, modelVersion string) (*models.PredictionRecord, error) {
	for _, r := range f.records {
		if r.RaceID == raceID && (modelVersion == "" || r.ModelVersion == modelVersion) {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakePredictor) History(_ context.Context, raceID string, limit int) ([]*models.PredictionRecord, error) {
	f.lastLimit = limit
	return f.records, nil
}

func (f *fakePredictor) DefaultWeights() models.WeightVector {
	return models.DefaultWeightVector()
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func apiField() *models.Field {
	comp := func(id, team string, p, quali float64) *models.Competitor {
		return &models.Competitor{
			ID:     id,
			Team:   team,
			PModel: models.Float64(p),
			Features: map[string]*float64{
				models.FeatureQualifyingTime:  models.Float64(quali),
				models.FeatureTeamPerformance: models.Float64(p),
				models.FeatureCleanAirPace:    models.Float64(p),
			},
		}
	}
	return &models.Field{RaceID: "interlagos-2024", ModelVersion: "v7", Competitors: []*models.Competitor{
		comp("NOR", "McLaren", 0.42, 70.0),
		comp("VER", "Red Bull", 0.33, 70.2),
		comp("RUS", "Mercedes", 0.25, 70.4),
	}}
}

func newTestRouter() (*fakePredictor, http.Handler) {
	p := &fakePredictor{
		engine: overlay.NewEngine(overlay.WithLogger(quietLogger())),
		field:  apiField(),
	}
	return p, NewRouter(p, RouterConfig{
		CORSOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
	}, quietLogger())
}

func doRequest(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPredictWithDefaults(t *testing.T) {
	p, h := newTestRouter()

	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DefaultWeightVector(), p.lastWeights)

	var resp predictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "interlagos-2024", resp.RaceID)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "NOR", resp.Entries[0].ID)
	assert.Equal(t, models.FormatPercent(resp.Entries[0].WinProbability), resp.Entries[0].WinPercent)
	assert.Equal(t, "100.0", resp.Entries[0].Top3Percent)
	assert.Contains(t, resp.Explanation, "NOR (McLaren) is the predicted winner.")
}

func TestPredictWithWeightsAndSeed(t *testing.T) {
	p, h := newTestRouter()

	body := map[string]interface{}{
		"weights": map[string]interface{}{
			"track_suitability":     0.1,
			"clean_air_pace":        0.2,
			"qualifying_importance": 1,
			"team_form":             0,
			"weather_impact":        0.5,
			"chaos_mode":            true,
		},
		"seed": 1234,
	}
	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, p.lastWeights.ChaosMode)
	assert.Equal(t, 1.0, p.lastWeights.QualifyingImportance)
	require.NotNil(t, p.lastSeed)
	assert.Equal(t, int64(1234), *p.lastSeed)

	out := decodeBody(t, rec)
	assert.Equal(t, float64(1234), out["chaos_seed"])
}

func TestPredictRejectsBadInput(t *testing.T) {
	_, h := newTestRouter()

	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024", `{"weights": {"team_form": 1.4}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "TeamForm")

	rec = doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024", `{"weights":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024", `{"unknown": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"race not found", fmt.Errorf("%w: x", baseline.ErrRaceNotFound), http.StatusNotFound, "race_not_found"},
		{"baseline down", fmt.Errorf("%w: status 503", baseline.ErrBaselineUnavailable), http.StatusBadGateway, "baseline_unavailable"},
		{"bad baseline payload", fmt.Errorf("%w: %w", baseline.ErrInvalidBaselineResponse, &models.InvalidFieldError{Reason: "field is empty"}), http.StatusBadGateway, "invalid_baseline_response"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, h := newTestRouter()
			p.fieldErr = tt.err

			rec := doRequest(h, http.MethodPost, "/api/v1/predictions/x", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.reason, decodeBody(t, rec)["reason"])
		})
	}
}

func TestEvaluate(t *testing.T) {
	_, h := newTestRouter()

	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/evaluate", map[string]interface{}{"field": apiField()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "interlagos-2024", decodeBody(t, rec)["race_id"])

	rec = doRequest(h, http.MethodPost, "/api/v1/predictions/evaluate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	field := apiField()
	field.Competitors[2].PModel = nil
	rec = doRequest(h, http.MethodPost, "/api/v1/predictions/evaluate", map[string]interface{}{"field": field})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_baseline", decodeBody(t, rec)["reason"])
}

func TestBreakdown(t *testing.T) {
	p, h := newTestRouter()

	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/interlagos-2024/breakdown", map[string]interface{}{
		"weights": models.WeightVector{QualifyingImportance: 0.6},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.6, p.lastWeights.QualifyingImportance)

	var out struct {
		RaceID      string                      `json:"race_id"`
		Competitors []*overlay.ScoredCompetitor `json:"competitors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "interlagos-2024", out.RaceID)
	require.Len(t, out.Competitors, 3)
	nor, ok := out.Competitors[0].Contribution(models.FactorQualifyingImportance)
	require.True(t, ok)
	assert.Greater(t, nor.Value, 0.0)

	p.fieldErr = baseline.ErrRaceNotFound
	rec = doRequest(h, http.MethodPost, "/api/v1/predictions/nowhere/breakdown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateRejectsOversizedField(t *testing.T) {
	_, h := newTestRouter()

	field := &models.Field{RaceID: "grid-too-big"}
	for i := 0; i <= models.MaxFieldSize; i++ {
		field.Competitors = append(field.Competitors, &models.Competitor{
			ID:     fmt.Sprintf("D%03d", i),
			PModel: models.Float64(0.005),
		})
	}

	rec := doRequest(h, http.MethodPost, "/api/v1/predictions/evaluate", map[string]interface{}{"field": field})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_field", decodeBody(t, rec)["reason"])
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(level)

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"p": math.NaN()})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "Failed to encode response", entry.Message)
	assert.Equal(t, "api", entry.Data["component"])
}

func TestLatestAndHistory(t *testing.T) {
	p, h := newTestRouter()

	result, err := p.engine.Predict(apiField(), models.DefaultWeightVector())
	require.NoError(t, err)
	p.records = []*models.PredictionRecord{models.NewPredictionRecord(result)}

	rec := doRequest(h, http.MethodGet, "/api/v1/predictions/interlagos-2024/latest?model_version=v7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, p.records[0].ID.String(), out["id"])

	rec = doRequest(h, http.MethodGet, "/api/v1/predictions/interlagos-2024/latest?model_version=v8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/v1/predictions/interlagos-2024/history?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, p.lastLimit)
	assert.Len(t, decodeBody(t, rec)["predictions"], 1)

	rec = doRequest(h, http.MethodGet, "/api/v1/predictions/interlagos-2024/history?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDefaultWeights(t *testing.T) {
	_, h := newTestRouter()

	rec := doRequest(h, http.MethodGet, "/api/v1/weights/defaults", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var weights models.WeightVector
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &weights))
	assert.Equal(t, models.DefaultWeightVector(), weights)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/weights/defaults", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrPersistenceDisabled))
	assert.Equal(t, http.StatusBadGateway, statusFor(baseline.ErrCircuitOpen))
	assert.Equal(t, http.StatusBadRequest, statusFor(&models.InvalidWeightError{Weight: "team_form", Value: 3}))
}
