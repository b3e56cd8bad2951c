package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidField    = errors.New("invalid field")
	ErrInvalidWeight   = errors.New("invalid weight")
	ErrMissingBaseline = errors.New("missing baseline probability")
)

// InvalidFieldError reports a field that cannot be scored: empty, duplicated
// competitor identifiers, an out-of-range baseline, or too few competitors
// for a top-k marginal.
type InvalidFieldError struct {
	RaceID       string
	CompetitorID string
	Reason       string
}

func (e *InvalidFieldError) Error() string {
	if e.CompetitorID != "" {
		return fmt.Sprintf("invalid field %q: competitor %q: %s", e.RaceID, e.CompetitorID, e.Reason)
	}
	return fmt.Sprintf("invalid field %q: %s", e.RaceID, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidField)
func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidField
}

// InvalidWeightError reports a weight outside the closed range [0,1].
type InvalidWeightError struct {
	Weight string
	Value  float64
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("invalid weight %s=%v: must be within [0,1]", e.Weight, e.Value)
}

// Unwrap allows errors.Is(err, ErrInvalidWeight)
func (e *InvalidWeightError) Unwrap() error {
	return ErrInvalidWeight
}

// MissingBaselineError reports a competitor without a p_model value.
type MissingBaselineError struct {
	RaceID       string
	CompetitorID string
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("competitor %q in race %q has no baseline probability", e.CompetitorID, e.RaceID)
}

// Unwrap allows errors.Is(err, ErrMissingBaseline)
func (e *MissingBaselineError) Unwrap() error {
	return ErrMissingBaseline
}
