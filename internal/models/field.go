package models

import (
	"fmt"
	"math"
)

// MaxFieldSize bounds the number of competitors in one field. The podium
// marginal is cubic in the field size.
const MaxFieldSize = 100

// Field is the ordered set of competitors for one race instance.
type Field struct {
	RaceID       string        `json:"race_id" yaml:"race_id"`
	ModelVersion string        `json:"model_version" yaml:"model_version"`
	Competitors  []*Competitor `json:"competitors" yaml:"competitors"`
}

// Size returns the number of competitors
func (f *Field) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Competitors)
}

// Validate checks the field invariants: non-empty, unique identifiers and a
// baseline probability in [0,1] for every competitor. The sum of p_model is
// left to the caller.
func (f *Field) Validate() error {
	if f.Size() == 0 {
		raceID := ""
		if f != nil {
			raceID = f.RaceID
		}
		return &InvalidFieldError{RaceID: raceID, Reason: "field is empty"}
	}
	if f.Size() > MaxFieldSize {
		return &InvalidFieldError{
			RaceID: f.RaceID,
			Reason: fmt.Sprintf("field has %d competitors, at most %d allowed", f.Size(), MaxFieldSize),
		}
	}

	seen := make(map[string]struct{}, len(f.Competitors))
	for _, c := range f.Competitors {
		if c == nil || c.ID == "" {
			return &InvalidFieldError{RaceID: f.RaceID, Reason: "competitor without identifier"}
		}
		if _, dup := seen[c.ID]; dup {
			return &InvalidFieldError{RaceID: f.RaceID, CompetitorID: c.ID, Reason: "duplicate identifier"}
		}
		seen[c.ID] = struct{}{}

		if c.PModel == nil {
			return &MissingBaselineError{RaceID: f.RaceID, CompetitorID: c.ID}
		}
		p := *c.PModel
		if math.IsNaN(p) || p < 0 || p > 1 {
			return &InvalidFieldError{RaceID: f.RaceID, CompetitorID: c.ID, Reason: "p_model must be within [0,1]"}
		}
	}
	return nil
}
