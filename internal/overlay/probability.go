package overlay

import (
	"fmt"
	"math"

	"github.com/yourusername/podium/internal/models"
)

// Probability normalisation constants
const (
	// DefaultProbabilityFloor is the smallest strength any competitor keeps
	// after shifting, so every win probability stays strictly positive.
	DefaultProbabilityFloor = 1e-6

	// PodiumPositions is the k used for the top-k marginal.
	PodiumPositions = 3
)

// Strengths shifts all scores by the same amount so that the minimum is at
// least floor. Scores already above the floor are returned unchanged.
//
// The shift is additive, so once it engages a competitor's win probability is
// no longer monotone in the weights: raising a weight that pushes the weakest
// score further below the floor adds the same amount to everyone and can
// lower the leader's share.
func Strengths(scores []float64, floor float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lowest := scores[0]
	for _, s := range scores[1:] {
		if s < lowest {
			lowest = s
		}
	}

	shift := 0.0
	if lowest < floor {
		shift = floor - lowest
	}
	for i, s := range scores {
		out[i] = s + shift
	}
	return out
}

// WinProbabilities divides each strength by the total. This is a linear
// normalisation, so proportions from the overlay survive unchanged.
func WinProbabilities(strengths []float64) []float64 {
	var total float64
	for _, t := range strengths {
		total += t
	}

	out := make([]float64, len(strengths))
	if total <= 0 {
		return out
	}
	for i, t := range strengths {
		out[i] = t / total
	}
	return out
}

// TopKProbabilities returns, for each competitor, the probability of
// finishing in the first k places under a Plackett–Luce model with the given
// strengths: places are filled one at a time by drawing without replacement
// in proportion to strength.
//
// The marginal is exact. Every ordered prefix of length k is visited once and
// the probability of the prefix is propagated to each candidate for the next
// place, so cost grows as n^k.
func TopKProbabilities(strengths []float64, k int) ([]float64, error) {
	n := len(strengths)
	if k <= 0 {
		return nil, fmt.Errorf("top-k marginal needs k > 0, got %d", k)
	}
	if n < k {
		return nil, &models.InvalidFieldError{
			Reason: fmt.Sprintf("top-%d probability needs at least %d competitors, got %d", k, k, n),
		}
	}
	for _, t := range strengths {
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, &models.InvalidFieldError{Reason: "strengths must be positive and finite"}
		}
	}

	out := make([]float64, n)
	used := make([]bool, n)

	var place func(depth int, prefix float64)
	place = func(depth int, prefix float64) {
		var remaining float64
		for i, t := range strengths {
			if !used[i] {
				remaining += t
			}
		}

		for i, t := range strengths {
			if used[i] {
				continue
			}
			p := prefix * t / remaining
			out[i] += p
			if depth+1 < k {
				used[i] = true
				place(depth+1, p)
				used[i] = false
			}
		}
	}
	place(0, 1)

	for i := range out {
		out[i] = math.Min(1, out[i])
	}
	return out, nil
}
