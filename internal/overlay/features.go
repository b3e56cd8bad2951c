// Package overlay turns baseline model probabilities and user weights into a
// consistent outcome distribution for a race field.
package overlay

import (
	"math"

	"github.com/yourusername/podium/internal/models"
)

// zeroStdTolerance below which a feature column is treated as tied
const zeroStdTolerance = 1e-12

// ZScoreTable holds field-relative standardised feature values, indexed by
// feature name and competitor position in the field.
type ZScoreTable struct {
	ids    []string
	values map[string][]float64
}

// Z returns the z-score of a feature for the competitor at position i.
// Unknown features and positions return 0.
func (t *ZScoreTable) Z(feature string, i int) float64 {
	if t == nil {
		return 0
	}
	col, ok := t.values[feature]
	if !ok || i < 0 || i >= len(col) {
		return 0
	}
	return col[i]
}

// Column returns a copy of one feature's z-scores in field order
func (t *ZScoreTable) Column(feature string) []float64 {
	col := t.values[feature]
	out := make([]float64, len(col))
	copy(out, col)
	return out
}

// CompetitorIDs returns the competitor order the table was built with
func (t *ZScoreTable) CompetitorIDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// NormalizeFeatures standardises each feature against the field.
//
// Missing values are imputed with the mean of the present values, so they
// always land on z=0. A feature with zero spread (or no values at all) is
// uninformative for this field and gets z=0 everywhere.
func NormalizeFeatures(field *models.Field, features []string) (*ZScoreTable, error) {
	if field.Size() == 0 {
		raceID := ""
		if field != nil {
			raceID = field.RaceID
		}
		return nil, &models.InvalidFieldError{RaceID: raceID, Reason: "field is empty"}
	}

	n := len(field.Competitors)
	table := &ZScoreTable{
		ids:    make([]string, n),
		values: make(map[string][]float64, len(features)),
	}
	for i, c := range field.Competitors {
		table.ids[i] = c.ID
	}

	for _, feature := range features {
		table.values[feature] = standardize(field.Competitors, feature)
	}

	return table, nil
}

// standardize works on values divided by the largest magnitude in the
// column. z-scores do not depend on scale, and the scaled sums cannot
// overflow however large the raw values are.
func standardize(competitors []*models.Competitor, feature string) []float64 {
	n := len(competitors)
	z := make([]float64, n)
	column := make([]float64, n)
	present := make([]bool, n)

	var scale float64
	var count int
	for i, c := range competitors {
		if v, ok := c.Feature(feature); ok {
			column[i] = v
			present[i] = true
			scale = math.Max(scale, math.Abs(v))
			count++
		}
	}
	if count == 0 || scale == 0 {
		return z
	}

	var sum float64
	for i := range column {
		if present[i] {
			column[i] /= scale
			sum += column[i]
		}
	}

	mean := sum / float64(count)
	var squares float64
	for i := range column {
		if !present[i] {
			column[i] = mean
		}
		d := column[i] - mean
		squares += d * d
	}

	std := math.Sqrt(squares / float64(n))
	if std < zeroStdTolerance/scale {
		return z
	}

	for i, v := range column {
		z[i] = (v - mean) / std
	}
	return z
}
