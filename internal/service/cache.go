package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/models"
)

// latestModelVersion stands in for the model version when the field has not
// been fetched yet.
const latestModelVersion = "latest"

// CacheKey identifies one deterministic prediction request
type CacheKey struct {
	RaceID       string
	ModelVersion string
	Weights      models.WeightVector
	Seed         *int64
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	w := k.Weights
	seed := "-"
	if k.Seed != nil {
		seed = fmt.Sprintf("%d", *k.Seed)
	}
	return fmt.Sprintf("%s|%s|%g,%g,%g,%g,%g|%t|%s",
		k.RaceID, k.ModelVersion,
		w.TrackSuitability, w.CleanAirPace, w.QualifyingImportance, w.TeamForm, w.WeatherImpact,
		w.ChaosMode, seed)
}

// Cacheable reports whether a request always yields the same result. Chaos
// runs without a seed draw fresh noise every time.
func (k CacheKey) Cacheable() bool {
	return !k.Weights.ChaosMode || k.Seed != nil
}

// PredictionCache provides in-memory caching for prediction results
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a copy of a cached result, or nil
func (pc *PredictionCache) Get(key CacheKey) *models.PredictionResult {
	if !key.Cacheable() {
		return nil
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if item, found := pc.cache.Get(key.String()); found {
		if result, ok := item.(*models.PredictionResult); ok {
			pc.hitCount++
			pc.updateMetrics()
			return result.Clone()
		}
	}

	pc.missCount++
	pc.updateMetrics()
	return nil
}

// Set stores a copy of the result. It reports whether the result was stored.
func (pc *PredictionCache) Set(key CacheKey, result *models.PredictionResult) bool {
	if !key.Cacheable() || result == nil {
		return false
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return false
		}
	}

	pc.cache.Set(key.String(), result.Clone(), pc.ttl)
	return true
}

// InvalidateRace removes every cached result for a race
func (pc *PredictionCache) InvalidateRace(raceID string) int {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	prefix := raceID + "|"
	removed := 0
	for k := range pc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			pc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats()
}

func (pc *PredictionCache) stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount
	misses = pc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.stats()
	metrics.UpdateCacheHitRatio(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
