package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car_price_service/internal/api"
	"car_price_service/internal/config"
	"car_price_service/internal/core"
	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
	"car_price_service/internal/infrastructure/mlclient"
	"car_price_service/internal/observability"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	gin.SetMode(cfg.GinMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("car price service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting car price service",
		"artifact_dir", cfg.ArtifactDir,
		"backend", cfg.ModelBackend,
	)

	// Артефакты обязательны: без них сервис не поднимается
	store := repository.NewArtifactStore(cfg.ArtifactDir)
	columns, scaler, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	encoder, err := core.NewEncoder(columns, scaler)
	if err != nil {
		return fmt.Errorf("failed to build feature encoder: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := buildModels(ctx, cfg, store, columns)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	// Журнал предсказаний
	var (
		recorder      repository.PredictionRecorder
		predictionLog repository.PredictionLog
	)
	if cfg.PredictionLogEnabled() {
		postgresRepo, err := repository.NewPostgresRepository(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer postgresRepo.Close()

		if err := postgresRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare prediction log schema: %w", err)
		}
		recorder = repository.NewPostgresPredictionRecorder(postgresRepo.DB)
		predictionLog = postgresRepo
		logger.Info("prediction log enabled", "save_predictions", cfg.SavePredictions)
	}

	predictionService := core.NewPredictionService(
		encoder,
		models,
		recorder,
		predictionLog,
		cfg.SavePredictions,
		logger,
	)

	handler := api.NewHandler(predictionService, logger)
	router := api.NewRouter(handler, logger, cfg.CORSOrigin)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.ModelServiceTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "address", cfg.HTTPAddress(), "columns", len(columns))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("car price service stopped")
	return serveErr
}

// buildModels registers lr and rf against either the exported artifacts or a
// remote model server.
func buildModels(ctx context.Context, cfg *config.Config, store *repository.ArtifactStore, columns model.TrainColumns) ([]core.RegisteredModel, error) {
	keys := []string{core.ModelLinear, core.ModelForest}

	if cfg.ModelBackend == core.BackendRemote {
		server := mlclient.NewModelServerClient(cfg.ModelServiceURL, cfg.ModelServiceTimeout)
		if err := server.RequireModels(ctx, len(columns), keys...); err != nil {
			return nil, err
		}
		models := make([]core.RegisteredModel, 0, len(keys))
		for _, k := range keys {
			r := mlclient.NewHTTPRegressor(cfg.ModelServiceURL, k, cfg.ModelServiceTimeout)
			models = append(models, core.NewRegisteredModel(k, core.BackendRemote, len(columns), r))
		}
		return models, nil
	}

	lr, err := mlclient.LoadLinearRegressor(store.Path(repository.LinearModelFile), columns)
	if err != nil {
		return nil, err
	}
	rf, err := mlclient.LoadForestRegressor(store.Path(repository.ForestModelFile), columns)
	if err != nil {
		return nil, err
	}
	return []core.RegisteredModel{
		core.NewRegisteredModel(core.ModelLinear, core.BackendLocal, lr.Features(), lr),
		core.NewRegisteredModel(core.ModelForest, core.BackendLocal, rf.Features(), rf),
	}, nil
}
