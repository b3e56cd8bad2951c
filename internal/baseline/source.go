package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/models"
)

// maxResponseBytes caps the size of a field payload
const maxResponseBytes = 4 << 20

// FieldSource yields the baseline-scored field for a race.
type FieldSource interface {
	GetField(ctx context.Context, raceID string) (*models.Field, error)
	Health(ctx context.Context) error
}

// HTTPFieldSource reads fields from the baseline model service over HTTP.
type HTTPFieldSource struct {
	baseURL string
	apiKey  string
	client  *RateLimitedHTTPClient
	logger  *logrus.Entry
}

// NewHTTPFieldSource creates a field source for the given service URL
func NewHTTPFieldSource(baseURL, apiKey string, cfg ClientConfig, logger *logrus.Logger) *HTTPFieldSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPFieldSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  NewRateLimitedHTTPClient(cfg, logger),
		logger:  logger.WithField("component", "baseline"),
	}
}

// FromConfig builds an HTTPFieldSource from the baseline config section
func FromConfig(cfg *config.BaselineConfig, logger *logrus.Logger) (*HTTPFieldSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("baseline config is required")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid baseline url: %w", err)
	}

	clientCfg := DefaultClientConfig()
	if cfg.TimeoutSeconds > 0 {
		clientCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.RateLimit = cfg.RateLimit
	if cfg.RateBurst > 0 {
		clientCfg.RateBurst = cfg.RateBurst
	}

	return NewHTTPFieldSource(cfg.URL, cfg.APIKey, clientCfg, logger), nil
}

// NewSource builds the field source selected by the baseline config: the
// HTTP service by default, or a directory of field files for source "file".
// The caller closes the result when it implements io.Closer.
func NewSource(cfg *config.BaselineConfig, logger *logrus.Logger) (FieldSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("baseline config is required")
	}

	switch cfg.Source {
	case "", "http":
		return FromConfig(cfg, logger)
	case "file":
		if cfg.FieldsDir == "" {
			return nil, fmt.Errorf("baseline.fields_dir is required for the file source")
		}
		return &FileFieldSource{Dir: cfg.FieldsDir}, nil
	default:
		return nil, fmt.Errorf("unknown baseline source %q", cfg.Source)
	}
}

// GetField fetches and validates the field for a race
func (s *HTTPFieldSource) GetField(ctx context.Context, raceID string) (*models.Field, error) {
	if raceID == "" {
		return nil, fmt.Errorf("%w: race id is required", ErrRaceNotFound)
	}

	endpoint := fmt.Sprintf("%s/api/v1/races/%s/field", s.baseURL, url.PathEscape(raceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build baseline request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		metrics.RecordBaselineRequest("error", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrBaselineUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.RecordBaselineRequest(statusLabel(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrBaselineUnavailable, resp.StatusCode)
	}

	var field models.Field
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&field); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaselineResponse, err)
	}

	if field.RaceID == "" {
		field.RaceID = raceID
	} else if field.RaceID != raceID {
		return nil, fmt.Errorf("%w: asked for race %q, got %q", ErrInvalidBaselineResponse, raceID, field.RaceID)
	}
	if err := field.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaselineResponse, err)
	}

	s.logger.WithFields(logrus.Fields{
		"race_id":       raceID,
		"model_version": field.ModelVersion,
		"field_size":    field.Size(),
		"latency_ms":    time.Since(start).Milliseconds(),
	}).Debug("Fetched baseline field")

	return &field, nil
}

// Health checks that the baseline service answers its health endpoint
func (s *HTTPFieldSource) Health(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.baseURL+"/health")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBaselineUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrBaselineUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections
func (s *HTTPFieldSource) Close() error {
	return s.client.Close()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "ok"
	}
}
