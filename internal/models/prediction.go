package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEntry is one competitor's line in a prediction result.
type PredictionEntry struct {
	ID              string  `json:"id"`
	Team            string  `json:"team"`
	WinProbability  float64 `json:"win_probability"`
	Top3Probability float64 `json:"top3_probability"`
}

// PredictionResult is the outcome distribution for one race and one set of
// weights. Entries are ordered by descending win probability.
type PredictionResult struct {
	RaceID       string            `json:"race_id"`
	ModelVersion string            `json:"model_version"`
	Entries      []PredictionEntry `json:"entries"`
	Explanation  string            `json:"explanation"`
	Weights      WeightVector      `json:"weights"`
	ChaosSeed    *int64            `json:"chaos_seed,omitempty"`
}

// Leader returns the entry with the highest win probability
func (r *PredictionResult) Leader() (PredictionEntry, bool) {
	if r == nil || len(r.Entries) == 0 {
		return PredictionEntry{}, false
	}
	return r.Entries[0], true
}

// Entry looks up a competitor's entry by identifier
func (r *PredictionResult) Entry(id string) (PredictionEntry, bool) {
	if r == nil {
		return PredictionEntry{}, false
	}
	for _, e := range r.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return PredictionEntry{}, false
}

// Clone returns a deep copy so that each caller owns its result.
func (r *PredictionResult) Clone() *PredictionResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Entries = make([]PredictionEntry, len(r.Entries))
	copy(out.Entries, r.Entries)
	if r.ChaosSeed != nil {
		seed := *r.ChaosSeed
		out.ChaosSeed = &seed
	}
	return &out
}

// PredictionRecord is a persisted prediction result
type PredictionRecord struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	RaceID       string            `db:"race_id" json:"race_id" validate:"required"`
	ModelVersion string            `db:"model_version" json:"model_version"`
	Result       *PredictionResult `db:"result" json:"result" validate:"required"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// NewPredictionRecord wraps a result for persistence
func NewPredictionRecord(result *PredictionResult) *PredictionRecord {
	return &PredictionRecord{
		ID:           uuid.New(),
		RaceID:       result.RaceID,
		ModelVersion: result.ModelVersion,
		Result:       result,
		CreatedAt:    time.Now().UTC(),
	}
}
