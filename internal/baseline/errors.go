// Package baseline fetches race fields scored by the upstream baseline model.
package baseline

import "errors"

var (
	// ErrRaceNotFound indicates the baseline service has no field for the race
	ErrRaceNotFound = errors.New("race not found")

	// ErrBaselineUnavailable indicates the baseline service is unreachable or failing
	ErrBaselineUnavailable = errors.New("baseline service unavailable")

	// ErrInvalidBaselineResponse indicates the baseline service returned an unusable field
	ErrInvalidBaselineResponse = errors.New("invalid response from baseline service")

	// ErrCircuitOpen indicates requests are suspended after repeated failures
	ErrCircuitOpen = errors.New("circuit breaker open")
)
