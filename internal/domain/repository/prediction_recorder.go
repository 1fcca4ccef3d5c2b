package repository

import (
	"context"
	"fmt"

	"car_price_service/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type PredictionRecorder interface {
	SavePrediction(ctx context.Context, entry model.PredictionLogEntry) error
}

type PredictionLog interface {
	ListRecent(ctx context.Context, modelName string, limit int) ([]model.PredictionLogEntry, error)
}

type PostgresPredictionRecorder struct {
	db *sqlx.DB
}

func NewPostgresPredictionRecorder(db *sqlx.DB) *PostgresPredictionRecorder {
	return &PostgresPredictionRecorder{db: db}
}

func (r *PostgresPredictionRecorder) SavePrediction(ctx context.Context, entry model.PredictionLogEntry) error {
	const query = `
		INSERT INTO prediction_log (
			id, request_id, model,
			year, odometer_km, doors, accidents, location, car_model,
			location_fallback, car_model_fallback,
			prediction, created_at
		) VALUES (
			:id, :request_id, :model,
			:year, :odometer_km, :doors, :accidents, :location, :car_model,
			:location_fallback, :car_model_fallback,
			:prediction, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to save prediction %s: %w", entry.ID, err)
	}
	return nil
}
