package models

import "math"

// Factor names one of the five user-adjustable heuristic weights.
type Factor string

// Heuristic weight factors
const (
	FactorTrackSuitability     Factor = "track_suitability"
	FactorCleanAirPace         Factor = "clean_air_pace"
	FactorQualifyingImportance Factor = "qualifying_importance"
	FactorTeamForm             Factor = "team_form"
	FactorWeatherImpact        Factor = "weather_impact"
)

// Factors lists every factor in canonical order. Explanation tie-breaks follow it.
var Factors = []Factor{
	FactorTrackSuitability,
	FactorCleanAirPace,
	FactorQualifyingImportance,
	FactorTeamForm,
	FactorWeatherImpact,
}

// WeightVector holds the slider weights for one prediction request.
type WeightVector struct {
	TrackSuitability     float64 `json:"track_suitability" yaml:"track_suitability" mapstructure:"track_suitability" validate:"gte=0,lte=1"`
	CleanAirPace         float64 `json:"clean_air_pace" yaml:"clean_air_pace" mapstructure:"clean_air_pace" validate:"gte=0,lte=1"`
	QualifyingImportance float64 `json:"qualifying_importance" yaml:"qualifying_importance" mapstructure:"qualifying_importance" validate:"gte=0,lte=1"`
	TeamForm             float64 `json:"team_form" yaml:"team_form" mapstructure:"team_form" validate:"gte=0,lte=1"`
	WeatherImpact        float64 `json:"weather_impact" yaml:"weather_impact" mapstructure:"weather_impact" validate:"gte=0,lte=1"`
	ChaosMode            bool    `json:"chaos_mode" yaml:"chaos_mode" mapstructure:"chaos_mode"`
}

// DefaultWeightVector returns the dashboard's default slider positions.
func DefaultWeightVector() WeightVector {
	return WeightVector{
		TrackSuitability:     0.85,
		CleanAirPace:         0.90,
		QualifyingImportance: 0.85,
		TeamForm:             0.68,
		WeatherImpact:        0.45,
		ChaosMode:            false,
	}
}

// Weight returns the value of a single factor
func (w WeightVector) Weight(f Factor) float64 {
	switch f {
	case FactorTrackSuitability:
		return w.TrackSuitability
	case FactorCleanAirPace:
		return w.CleanAirPace
	case FactorQualifyingImportance:
		return w.QualifyingImportance
	case FactorTeamForm:
		return w.TeamForm
	case FactorWeatherImpact:
		return w.WeatherImpact
	default:
		return 0
	}
}

// Validate checks that every weight lies within [0,1].
func (w WeightVector) Validate() error {
	for _, f := range Factors {
		v := w.Weight(f)
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &InvalidWeightError{Weight: string(f), Value: v}
		}
	}
	return nil
}

// IsZero reports whether every weight is zero
func (w WeightVector) IsZero() bool {
	for _, f := range Factors {
		if w.Weight(f) != 0 {
			return false
		}
	}
	return true
}
