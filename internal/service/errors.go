package service

import (
	"errors"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/models"
)

// ErrPersistenceDisabled is returned by history lookups when no repository is configured
var ErrPersistenceDisabled = errors.New("prediction persistence is disabled")

// ErrorReason maps an error to the label used in logs and metrics. Upstream
// failures are checked first since a bad baseline payload also wraps the
// field error that rejected it.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, baseline.ErrInvalidBaselineResponse):
		return "invalid_baseline_response"
	case errors.Is(err, baseline.ErrCircuitOpen), errors.Is(err, baseline.ErrBaselineUnavailable):
		return "baseline_unavailable"
	case errors.Is(err, baseline.ErrRaceNotFound):
		return "race_not_found"
	case errors.Is(err, models.ErrInvalidWeight):
		return "invalid_weight"
	case errors.Is(err, models.ErrMissingBaseline):
		return "missing_baseline"
	case errors.Is(err, models.ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, models.ErrNotFound), errors.Is(err, ErrPersistenceDisabled):
		return "not_found"
	default:
		return "internal"
	}
}
