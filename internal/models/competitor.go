package models

import "math"

// Raw feature names supplied by the baseline model for every competitor.
const (
	FeatureQualifyingTime        = "qualifying_time"
	FeatureRainProbability       = "rain_probability"
	FeatureTemperature           = "temperature"
	FeatureTeamPerformance       = "team_performance_score"
	FeatureCleanAirPace          = "clean_air_pace"
	FeatureAveragePositionChange = "average_position_change"
)

// FeatureNames is the fixed, ordered feature set consumed by the overlay.
var FeatureNames = []string{
	FeatureQualifyingTime,
	FeatureRainProbability,
	FeatureTemperature,
	FeatureTeamPerformance,
	FeatureCleanAirPace,
	FeatureAveragePositionChange,
}

// Competitor represents a driver entered in a race, as scored by the baseline model.
//
// qualifying_time is a lap time (lower is better). clean_air_pace and
// average_position_change are indices where higher is better.
type Competitor struct {
	ID       string              `json:"id" yaml:"id" validate:"required"`
	Team     string              `json:"team" yaml:"team"`
	PModel   *float64            `json:"p_model" yaml:"p_model"`
	Features map[string]*float64 `json:"features" yaml:"features"`
}

// Feature returns the raw value of a feature and whether it is usable.
// Nil, NaN and infinite values all count as missing.
func (c *Competitor) Feature(name string) (float64, bool) {
	if c.Features == nil {
		return 0, false
	}
	v, ok := c.Features[name]
	if !ok || v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// Baseline returns p_model or 0 if nil
func (c *Competitor) Baseline() float64 {
	if c.PModel == nil {
		return 0
	}
	return *c.PModel
}

// Float64 returns a pointer to v, for building competitors in code.
func Float64(v float64) *float64 {
	return &v
}
