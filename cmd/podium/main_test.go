package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/podium/internal/models"
)

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Float64Var(&teamWeight, "team", 0, "")
	cmd.Flags().Float64Var(&weatherWeight, "weather", 0, "")
	cmd.Flags().BoolVar(&chaos, "chaos", false, "")
	return cmd
}

func TestRequestWeightsOnlyOverridesChangedFlags(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--team", "0.1", "--chaos"}))
	defer func() { chaos = false }()

	base := models.DefaultWeightVector()
	base.WeatherImpact = 0.2

	w := requestWeights(cmd, base)
	assert.Equal(t, 0.1, w.TeamForm)
	assert.Equal(t, 0.2, w.WeatherImpact)
	assert.Equal(t, base.TrackSuitability, w.TrackSuitability)
	assert.True(t, w.ChaosMode)
}

func TestPrintTable(t *testing.T) {
	seed := int64(5)
	result := &models.PredictionResult{
		RaceID:       "spa-2024",
		ModelVersion: "v2",
		Entries: []models.PredictionEntry{
			{ID: "HAM", Team: "Mercedes", WinProbability: 0.512, Top3Probability: 0.9},
			{ID: "RUS", Team: "Mercedes", WinProbability: 0.488, Top3Probability: 0.88},
		},
		Explanation: "HAM (Mercedes) is the predicted winner.",
		ChaosSeed:   &seed,
	}

	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "Race: spa-2024  Model: v2")
	assert.Contains(t, out, "51.2")
	assert.Contains(t, out, "88.0")
	assert.Contains(t, out, "HAM (Mercedes) is the predicted winner.")
	assert.Contains(t, out, "Chaos seed: 5")
}
