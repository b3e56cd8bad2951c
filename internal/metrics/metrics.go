// Package metrics provides the centralized Prometheus registry for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podium"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Prediction metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of prediction requests",
	}, []string{"chaos", "outcome"})
	PredictionErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_errors_total",
		Help:      "Total number of rejected or failed predictions",
	}, []string{"reason"})
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_duration_seconds",
		Help:      "Duration of the overlay pipeline in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
	FieldSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "field_size",
		Help:      "Number of competitors per predicted field",
		Buckets:   []float64{2, 5, 10, 15, 20, 25, 30},
	})
	CacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_hit_ratio",
		Help:      "Prediction cache hit ratio",
	})
)

// Upstream and API metrics
var (
	BaselineRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "baseline_requests_total",
		Help:      "Total number of requests to the baseline model service",
	}, []string{"status"})
	BaselineLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "baseline_latency_seconds",
		Help:      "Latency of baseline model requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests",
	}, []string{"route", "code"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "API request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	WarmupRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warmup_runs_total",
		Help:      "Total number of scheduled warm-up predictions",
	}, []string{"status"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(PredictionErrorsTotal)
		registry.MustRegister(PredictionDuration)
		registry.MustRegister(FieldSize)
		registry.MustRegister(CacheHitRatio)

		registry.MustRegister(BaselineRequestsTotal)
		registry.MustRegister(BaselineLatency)
		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
		registry.MustRegister(WarmupRunsTotal)

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records a completed prediction.
func RecordPrediction(chaos bool, cacheHit bool, fieldSize int, duration time.Duration) {
	outcome := "computed"
	if cacheHit {
		outcome = "cached"
	}
	PredictionsTotal.WithLabelValues(strconv.FormatBool(chaos), outcome).Inc()
	if !cacheHit {
		PredictionDuration.Observe(duration.Seconds())
		FieldSize.Observe(float64(fieldSize))
	}
}

// RecordPredictionError records a failed prediction by reason.
func RecordPredictionError(reason string) {
	PredictionErrorsTotal.WithLabelValues(reason).Inc()
}

// UpdateCacheHitRatio sets the cache hit ratio gauge.
func UpdateCacheHitRatio(ratio float64) {
	CacheHitRatio.Set(ratio)
}

// RecordBaselineRequest records one request to the baseline service.
func RecordBaselineRequest(status string, duration time.Duration) {
	BaselineRequestsTotal.WithLabelValues(status).Inc()
	BaselineLatency.Observe(duration.Seconds())
}

// RecordHTTPRequest records one API request.
func RecordHTTPRequest(route string, code int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordWarmup records the result of one warm-up prediction.
func RecordWarmup(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	WarmupRunsTotal.WithLabelValues(status).Inc()
}
