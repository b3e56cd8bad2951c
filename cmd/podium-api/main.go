// Package main provides the entry point for the prediction API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/podium/internal/api"
	"github.com/yourusername/podium/internal/baseline"
	"github.com/yourusername/podium/internal/config"
	"github.com/yourusername/podium/internal/database"
	"github.com/yourusername/podium/internal/health"
	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/overlay"
	"github.com/yourusername/podium/internal/repository"
	"github.com/yourusername/podium/internal/scheduler"
	"github.com/yourusername/podium/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:   "podium-api",
	Short: "Serve race predictions over HTTP",
	Long:  `Serves weighted race outcome predictions on top of the baseline model, with health and metrics endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.ValidateEnvironment(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", cfg.App.Environment, err)
	}

	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Podium API starting")

	metrics.InitRegistry()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	checks := map[string]health.Checker{}

	var repo repository.PredictionRepository
	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		repos, err := repository.NewRepositories(db)
		if err != nil {
			return err
		}
		repo = repos.Prediction
		checks["database"] = health.CheckerFunc(db.HealthCheck)
		appLog.Info("Database connection established")
	} else {
		appLog.Info("Database disabled; predictions will not be persisted")
	}

	source, err := baseline.NewSource(&cfg.Baseline, appLog)
	if err != nil {
		return fmt.Errorf("failed to create baseline source: %w", err)
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}
	checks["baseline"] = health.CheckerFunc(source.Health)

	engine, err := overlay.FromConfig(&cfg.Engine, appLog)
	if err != nil {
		return fmt.Errorf("failed to create overlay engine: %w", err)
	}

	var cache *service.PredictionCache
	if cfg.Cache.Enabled {
		cache = service.NewPredictionCache(cfg.CacheTTL(), cfg.Cache.MaxSize)
	}

	svcCfg := service.Config{
		Source:         source,
		Engine:         engine,
		Cache:          cache,
		DefaultWeights: cfg.Weights,
		RetainPerRace:  cfg.Database.RetainPerRace,
		Logger:         appLog,
	}
	if repo != nil {
		svcCfg.Repository = repo
	}
	svc, err := service.NewPredictionService(svcCfg)
	if err != nil {
		return fmt.Errorf("failed to create prediction service: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(svc, appLog)
		if err := sched.ScheduleWarmup(cfg.Scheduler.WarmupCron, cfg.Scheduler.Races); err != nil {
			return fmt.Errorf("failed to schedule warm-up: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		go sched.RunWarmup(ctx, cfg.Scheduler.Races)
	}

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Metrics.Port,
		Checks:      checks,
		Logger:      appLog,
	}
	if cfg.Metrics.Enabled {
		healthCfg.MetricsPath = cfg.Metrics.Path
	}
	healthServer := health.NewServer(healthCfg)
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(svc, api.RouterConfig{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout(),
		}, appLog),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.WithField("port", cfg.Server.Port).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	healthServer.SetReady(true)

	// SIGHUP drops cached results, e.g. after the baseline model is retrained.
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

wait:
	for {
		select {
		case <-ctx.Done():
			appLog.Info("Shutdown signal received")
			break wait
		case err := <-serverErr:
			if err != nil {
				appLog.WithError(err).Error("API server failed")
			}
			break wait
		case <-hangup:
			appLog.WithField("removed", svc.ClearCache()).Info("Prediction cache cleared")
		}
	}

	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("API server shutdown error")
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Warn("Scheduler stop error")
		}
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Warn("Health server shutdown error")
	}

	appLog.Info("Podium API stopped")
	return nil
}
