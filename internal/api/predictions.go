package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
	"github.com/yourusername/podium/internal/service"
)

const (
	maxRequestBytes = 1 << 20
	maxHistoryLimit = 200
)

// PredictionsHandler serves the prediction endpoints on top of a Predictor.
type PredictionsHandler struct {
	predictor Predictor
	validate  *validator.Validate
	logger    *logrus.Entry
}

// NewPredictionsHandler creates a handler. Request bodies are validated with
// validator/v10 before they reach the predictor.
func NewPredictionsHandler(p Predictor, logger *logrus.Logger) *PredictionsHandler {
	return &PredictionsHandler{
		predictor: p,
		validate:  validator.New(),
		logger:    logger.WithField("component", "api"),
	}
}

type predictRequest struct {
	Weights *models.WeightVector `json:"weights"`
	Seed    *int64               `json:"seed"`
}

type evaluateRequest struct {
	Field   *models.Field        `json:"field" validate:"required"`
	Weights *models.WeightVector `json:"weights"`
	Seed    *int64               `json:"seed"`
}

type entryResponse struct {
	models.PredictionEntry
	WinPercent  string `json:"win_percent"`
	Top3Percent string `json:"top3_percent"`
}

type predictionResponse struct {
	RaceID       string              `json:"race_id"`
	ModelVersion string              `json:"model_version"`
	Entries      []entryResponse     `json:"entries"`
	Explanation  string              `json:"explanation"`
	Weights      models.WeightVector `json:"weights"`
	ChaosSeed    *int64              `json:"chaos_seed,omitempty"`
}

type breakdownResponse struct {
	RaceID      string                      `json:"race_id"`
	Weights     models.WeightVector         `json:"weights"`
	Competitors []*overlay.ScoredCompetitor `json:"competitors"`
}

type recordResponse struct {
	ID         string             `json:"id"`
	CreatedAt  string             `json:"created_at"`
	Prediction predictionResponse `json:"prediction"`
}

// Predict runs the overlay for a race fetched from the baseline service.
// POST /api/v1/predictions/{raceID}
func (h *PredictionsHandler) Predict(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")

	var req predictRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.predictor.PredictRace(r.Context(), raceID, h.weightsOrDefault(req.Weights), req.Seed)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPredictionResponse(result))
}

// Evaluate runs the overlay on a field supplied in the request body.
// POST /api/v1/predictions/evaluate
func (h *PredictionsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Field == nil {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}

	result, err := h.predictor.Evaluate(r.Context(), req.Field, h.weightsOrDefault(req.Weights), req.Seed)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPredictionResponse(result))
}

// Breakdown shows how each weight moved every competitor's raw score.
// POST /api/v1/predictions/{raceID}/breakdown
func (h *PredictionsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "raceID")

	var req predictRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	weights := h.weightsOrDefault(req.Weights)
	scored, err := h.predictor.Breakdown(r.Context(), raceID, weights)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, breakdownResponse{RaceID: raceID, Weights: weights, Competitors: scored})
}

// Latest returns the newest stored prediction for a race.
// GET /api/v1/predictions/{raceID}/latest?model_version=
func (h *PredictionsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	record, err := h.predictor.Latest(r.Context(), chi.URLParam(r, "raceID"), r.URL.Query().Get("model_version"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(record))
}

// History lists stored predictions for a race.
// GET /api/v1/predictions/{raceID}/history?limit=
func (h *PredictionsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	records, err := h.predictor.History(r.Context(), chi.URLParam(r, "raceID"), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": out})
}

// DefaultWeights returns the server's default slider positions.
// GET /api/v1/weights/defaults
func (h *PredictionsHandler) DefaultWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.predictor.DefaultWeights())
}

// decode reads an optional JSON body and validates it. An empty body is
// treated as an empty request.
func (h *PredictionsHandler) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %s validation (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

func (h *PredictionsHandler) weightsOrDefault(w *models.WeightVector) models.WeightVector {
	if w == nil {
		return h.predictor.DefaultWeights()
	}
	return *w
}

func (h *PredictionsHandler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("status", status).Error("Prediction request failed")
	}
	writeJSON(w, status, map[string]string{
		"error":  err.Error(),
		"reason": service.ErrorReason(err),
	})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, baseline.ErrInvalidBaselineResponse),
		errors.Is(err, baseline.ErrBaselineUnavailable),
		errors.Is(err, baseline.ErrCircuitOpen):
		return http.StatusBadGateway
	case errors.Is(err, baseline.ErrRaceNotFound),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, service.ErrPersistenceDisabled):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidWeight),
		errors.Is(err, models.ErrInvalidField),
		errors.Is(err, models.ErrMissingBaseline):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toPredictionResponse(result *models.PredictionResult) predictionResponse {
	entries := make([]entryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, entryResponse{
			PredictionEntry: e,
			WinPercent:      models.FormatPercent(e.WinProbability),
			Top3Percent:     models.FormatPercent(e.Top3Probability),
		})
	}
	return predictionResponse{
		RaceID:       result.RaceID,
		ModelVersion: result.ModelVersion,
		Entries:      entries,
		Explanation:  result.Explanation,
		Weights:      result.Weights,
		ChaosSeed:    result.ChaosSeed,
	}
}

func toRecordResponse(rec *models.PredictionRecord) recordResponse {
	return recordResponse{
		ID:         rec.ID.String(),
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
		Prediction: toPredictionResponse(rec.Result),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithField("component", "api").WithError(err).Debug("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
