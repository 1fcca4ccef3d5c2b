// Command prepare cleans a raw car listings CSV and exports the train columns
// and scaler consumed by the prediction service.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"car_price_service/internal/config"
	"car_price_service/internal/core"
	"car_price_service/internal/domain/repository"
	"car_price_service/internal/observability"
)

func main() {
	dataset := flag.String("dataset", "data/car_price_dataset_medium.csv", "raw listings CSV")
	outDir := flag.String("out", "models", "artifact output directory")
	cleanPath := flag.String("clean", "data/clean_car_data.csv", "where to write the encoded dataset, empty to skip")
	flag.Parse()

	config.LoadDotEnv()
	logger := observability.InitLogger(observability.LogConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "text",
	})

	if err := run(logger, *dataset, *outDir, *cleanPath); err != nil {
		logger.Error("prepare failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, dataset, outDir, cleanPath string) error {
	f, err := os.Open(dataset)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	baseColumns, listings, err := repository.ReadListings(f)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "path", dataset, "rows", len(listings))

	fitter := &core.Fitter{}
	result, err := fitter.Fit(baseColumns, listings)
	if err != nil {
		return err
	}
	logger.Info("dataset fitted",
		"rows", len(result.Rows),
		"columns", len(result.Columns),
		"scaled", len(result.Scaler.FeatureNames),
	)

	store := repository.NewArtifactStore(outDir)
	if err := repository.SaveJSON(store.Path(repository.TrainColumnsFile), result.Columns); err != nil {
		return err
	}
	if err := repository.SaveJSON(store.Path(repository.ScalerFile), result.Scaler); err != nil {
		return err
	}
	logger.Info("artifacts written", "dir", outDir)

	if cleanPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(cleanPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", cleanPath, err)
	}
	if err := repository.WriteTable(out, result.Header, result.Rows); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cleanPath, err)
	}
	logger.Info("clean dataset written", "path", cleanPath)
	return nil
}
