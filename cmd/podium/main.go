// Package main provides the podium command line tool for running predictions
// from a field file or the baseline service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/overlay"
)

var (
	configFile string
	jsonOutput bool
	chaos      bool
	seed       int64
	fieldFile  string
	raceID     string

	trackWeight   float64
	cleanAirWt    float64
	qualiWeight   float64
	teamWeight    float64
	weatherWeight float64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	rootCmd.PersistentFlags().BoolVar(&chaos, "chaos", false, "Add random variance to every score")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed for reproducible chaos noise")

	defaults := models.DefaultWeightVector()
	rootCmd.PersistentFlags().Float64Var(&trackWeight, "track", defaults.TrackSuitability, "Track suitability weight [0,1]")
	rootCmd.PersistentFlags().Float64Var(&cleanAirWt, "clean-air", defaults.CleanAirPace, "Clean-air pace weight [0,1]")
	rootCmd.PersistentFlags().Float64Var(&qualiWeight, "quali", defaults.QualifyingImportance, "Qualifying importance weight [0,1]")
	rootCmd.PersistentFlags().Float64Var(&teamWeight, "team", defaults.TeamForm, "Team form weight [0,1]")
	rootCmd.PersistentFlags().Float64Var(&weatherWeight, "weather", defaults.WeatherImpact, "Weather impact weight [0,1]")

	evaluateCmd.Flags().StringVarP(&fieldFile, "field", "f", "", "Field file (.json, .yaml or .yml)")
	_ = evaluateCmd.MarkFlagRequired("field")

	fetchCmd.Flags().StringVarP(&raceID, "race", "r", "", "Race identifier known to the baseline service")
	_ = fetchCmd.MarkFlagRequired("race")

	rootCmd.AddCommand(evaluateCmd, fetchCmd)
}

var rootCmd = &cobra.Command{
	Use:   "podium",
	Short: "Race outcome predictions with adjustable weights",
	Long:  `Overlays heuristic weights on baseline win probabilities and prints win and podium chances for each competitor.`,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Predict a race from a local field file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithDefaults(configFile)
		if err != nil {
			return err
		}

		field, err := baseline.ReadFieldFile(fieldFile)
		if err != nil {
			return err
		}

		return predict(cmd, cfg, field)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Predict a race using the field from the configured baseline source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithDefaults(configFile)
		if err != nil {
			return err
		}

		source, err := baseline.NewSource(&cfg.Baseline, cliLogger(cfg))
		if err != nil {
			return err
		}
		if closer, ok := source.(io.Closer); ok {
			defer closer.Close()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.BaselineTimeout()+5*time.Second)
		defer cancel()

		field, err := source.GetField(ctx, raceID)
		if err != nil {
			return err
		}

		return predict(cmd, cfg, field)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// cliLogger keeps library logs off stdout unless debugging
func cliLogger(cfg *config.Config) *logrus.Logger {
	l := logger.NewLogger(cfg.App.LogLevel, "production")
	l.SetOutput(os.Stderr)
	if cfg.App.LogLevel != "debug" {
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}

// requestWeights starts from the configured weights and applies any flags
// the user set explicitly.
func requestWeights(cmd *cobra.Command, base models.WeightVector) models.WeightVector {
	w := base
	flags := cmd.Flags()
	if flags.Changed("track") {
		w.TrackSuitability = trackWeight
	}
	if flags.Changed("clean-air") {
		w.CleanAirPace = cleanAirWt
	}
	if flags.Changed("quali") {
		w.QualifyingImportance = qualiWeight
	}
	if flags.Changed("team") {
		w.TeamForm = teamWeight
	}
	if flags.Changed("weather") {
		w.WeatherImpact = weatherWeight
	}
	w.ChaosMode = chaos
	return w
}

func predict(cmd *cobra.Command, cfg *config.Config, field *models.Field) error {
	engine, err := overlay.FromConfig(&cfg.Engine, cliLogger(cfg))
	if err != nil {
		return err
	}

	var opts []overlay.PredictOption
	if cmd.Flags().Changed("seed") {
		opts = append(opts, overlay.WithSeed(seed))
	}

	result, err := engine.Predict(field, requestWeights(cmd, cfg.Weights), opts...)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printTable(cmd.OutOrStdout(), result)
}

func printTable(out io.Writer, result *models.PredictionResult) error {
	fmt.Fprintf(out, "Race: %s  Model: %s\n\n", result.RaceID, result.ModelVersion)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDriver\tTeam\tWin %\tPodium %\t")
	for i, e := range result.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", i+1, e.ID, e.Team,
			models.FormatPercent(e.WinProbability), models.FormatPercent(e.Top3Probability))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", result.Explanation)
	if result.ChaosSeed != nil {
		fmt.Fprintf(out, "Chaos seed: %d\n", *result.ChaosSeed)
	}
	return nil
}
