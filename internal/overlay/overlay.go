package overlay

import (
	"github.com/yourusername/podium/internal/models"
)

// Contribution is the signed effect of one weight term on a raw score.
type Contribution struct {
	Factor models.Factor `json:"factor"`
	Weight float64       `json:"weight"`
	ZScore float64       `json:"z_score"`
	Value  float64       `json:"value"`
}

// ScoredCompetitor carries a competitor's raw score through the pipeline
// together with the breakdown that produced it.
type ScoredCompetitor struct {
	ID            string         `json:"id"`
	Team          string         `json:"team"`
	Baseline      float64        `json:"baseline"`
	RawScore      float64        `json:"raw_score"`
	Noise         float64        `json:"noise"`
	Contributions []Contribution `json:"contributions"`
}

// Score returns the raw score plus any chaos noise
func (s *ScoredCompetitor) Score() float64 {
	return s.RawScore + s.Noise
}

// Contribution returns the breakdown entry for a factor
func (s *ScoredCompetitor) Contribution(f models.Factor) (Contribution, bool) {
	for _, c := range s.Contributions {
		if c.Factor == f {
			return c, true
		}
	}
	return Contribution{}, false
}

// factorZScore maps a factor onto the standardised feature it weights.
// Qualifying time is inverted because a lower lap time is better; weather
// averages rain probability and temperature.
func factorZScore(table *ZScoreTable, f models.Factor, i int) float64 {
	switch f {
	case models.FactorTrackSuitability:
		return table.Z(models.FeatureAveragePositionChange, i)
	case models.FactorCleanAirPace:
		return table.Z(models.FeatureCleanAirPace, i)
	case models.FactorQualifyingImportance:
		return -table.Z(models.FeatureQualifyingTime, i)
	case models.FactorTeamForm:
		return table.Z(models.FeatureTeamPerformance, i)
	case models.FactorWeatherImpact:
		return (table.Z(models.FeatureRainProbability, i) + table.Z(models.FeatureTemperature, i)) / 2
	default:
		return 0
	}
}

// ApplyWeights computes raw_score(d) = p_model(d) + Σ weight·z for every
// competitor. Scores are not normalised and may fall outside [0,1].
func ApplyWeights(field *models.Field, table *ZScoreTable, weights models.WeightVector) ([]*ScoredCompetitor, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if field.Size() == 0 {
		return nil, &models.InvalidFieldError{Reason: "field is empty"}
	}

	scored := make([]*ScoredCompetitor, len(field.Competitors))
	for i, c := range field.Competitors {
		if c.PModel == nil {
			return nil, &models.MissingBaselineError{RaceID: field.RaceID, CompetitorID: c.ID}
		}

		sc := &ScoredCompetitor{
			ID:            c.ID,
			Team:          c.Team,
			Baseline:      *c.PModel,
			Contributions: make([]Contribution, 0, len(models.Factors)),
		}

		score := sc.Baseline
		for _, f := range models.Factors {
			w := weights.Weight(f)
			z := factorZScore(table, f, i)
			value := w * z
			sc.Contributions = append(sc.Contributions, Contribution{
				Factor: f,
				Weight: w,
				ZScore: z,
				Value:  value,
			})
			score += value
		}
		sc.RawScore = score
		scored[i] = sc
	}

	return scored, nil
}
