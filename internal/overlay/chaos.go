package overlay

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Chaos noise parameters. Each sample is N(0, DefaultChaosStdDev) clipped to
// ±ChaosClipSigmas standard deviations.
const (
	DefaultChaosStdDev = 0.05
	ChaosClipSigmas    = 3.0
)

// ErrNoRandomSource is returned when chaos mode runs without a noise source
var ErrNoRandomSource = errors.New("chaos mode requires a random source")

// RandomSource supplies standard normal samples. *rand.Rand satisfies it.
type RandomSource interface {
	NormFloat64() float64
}

// NewSeededSource returns a deterministic source for the given seed.
func NewSeededSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// CryptoSeed draws a seed from the operating system's entropy pool, falling
// back to the clock if that fails.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// InjectChaos adds one bounded noise sample per competitor, in field order.
// When disabled the scores are left untouched.
func InjectChaos(scored []*ScoredCompetitor, enabled bool, src RandomSource, stdDev float64) error {
	if !enabled {
		return nil
	}
	if src == nil {
		return ErrNoRandomSource
	}

	bound := ChaosClipSigmas * stdDev
	for _, sc := range scored {
		sc.Noise = math.Max(-bound, math.Min(bound, src.NormFloat64()*stdDev))
	}
	return nil
}
