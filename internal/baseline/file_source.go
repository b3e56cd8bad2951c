package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/podium/internal/models"
)

// ReadFieldFile loads a field from a .json, .yaml or .yml file.
func ReadFieldFile(path string) (*models.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field file: %w", err)
	}
	return DecodeField(data, filepath.Ext(path))
}

// DecodeField parses a field document. The format is a file extension;
// anything that is not YAML is read as JSON.
func DecodeField(data []byte, format string) (*models.Field, error) {
	var field models.Field
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &field); err != nil {
			return nil, fmt.Errorf("failed to parse field yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &field); err != nil {
			return nil, fmt.Errorf("failed to parse field json: %w", err)
		}
	}
	return &field, nil
}

// FileFieldSource serves fields from <dir>/<raceID>.{json,yaml,yml}, for
// offline runs and fixtures.
type FileFieldSource struct {
	Dir string
}

var fieldExtensions = []string{".json", ".yaml", ".yml"}

// GetField loads and validates the field for a race
func (s *FileFieldSource) GetField(ctx context.Context, raceID string) (*models.Field, error) {
	if raceID == "" || strings.ContainsAny(raceID, `/\`) || raceID == ".." {
		return nil, fmt.Errorf("%w: %q", ErrRaceNotFound, raceID)
	}

	for _, ext := range fieldExtensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.Dir, raceID+ext)
		field, err := ReadFieldFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBaselineResponse, err)
		}
		if field.RaceID == "" {
			field.RaceID = raceID
		}
		if err := field.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBaselineResponse, err)
		}
		return field, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
}

// Health checks that the directory is readable
func (s *FileFieldSource) Health(ctx context.Context) error {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBaselineUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrBaselineUnavailable, s.Dir)
	}
	return nil
}
