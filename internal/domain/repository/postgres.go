package repository

import (
	"context"
	"fmt"

	"car_price_service/internal/domain/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// MaxListLimit caps how many log entries a single query returns.
const MaxListLimit = 500

const predictionLogSchema = `
	CREATE TABLE IF NOT EXISTS prediction_log (
		id                 UUID PRIMARY KEY,
		request_id         TEXT NOT NULL,
		model              TEXT NOT NULL,
		year               INTEGER NOT NULL,
		odometer_km        DOUBLE PRECISION NOT NULL,
		doors              INTEGER NOT NULL,
		accidents          INTEGER NOT NULL,
		location           TEXT NOT NULL,
		car_model          TEXT NOT NULL,
		location_fallback  BOOLEAN NOT NULL,
		car_model_fallback BOOLEAN NOT NULL,
		prediction         DOUBLE PRECISION NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

type PostgresRepository struct {
	DB *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresRepository{DB: db}, nil
}

// EnsureSchema creates the prediction_log table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, predictionLogSchema); err != nil {
		return fmt.Errorf("failed to create prediction_log: %w", err)
	}
	return nil
}

// ListRecent returns the newest logged predictions, optionally for one model.
func (r *PostgresRepository) ListRecent(ctx context.Context, modelName string, limit int) ([]model.PredictionLogEntry, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	const query = `
		SELECT
			id, request_id, model,
			year, odometer_km, doors, accidents, location, car_model,
			location_fallback, car_model_fallback,
			prediction, created_at
		FROM prediction_log
		WHERE ($1::text = '' OR model = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	entries := []model.PredictionLogEntry{}
	if err := r.DB.SelectContext(ctx, &entries, query, modelName, limit); err != nil {
		return nil, fmt.Errorf("failed to query prediction log: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}
