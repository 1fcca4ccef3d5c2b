package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
	"car_price_service/internal/observability"

	"github.com/google/uuid"
)

// ErrPredictionLogDisabled is returned when the prediction log is not wired.
var ErrPredictionLogDisabled = errors.New("prediction log is disabled")

type PredictionService struct {
	encoder       *Encoder
	models        map[string]RegisteredModel
	order         []string
	recorder      repository.PredictionRecorder
	predictionLog repository.PredictionLog
	saveData      bool
	logger        *slog.Logger
}

func NewPredictionService(
	encoder *Encoder,
	models []RegisteredModel,
	recorder repository.PredictionRecorder,
	predictionLog repository.PredictionLog,
	saveData bool,
	logger *slog.Logger,
) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &PredictionService{
		encoder:       encoder,
		models:        make(map[string]RegisteredModel, len(models)),
		recorder:      recorder,
		predictionLog: predictionLog,
		saveData:      saveData && recorder != nil,
		logger:        logger,
	}
	for _, m := range models {
		key := strings.ToLower(m.Key)
		if _, dup := s.models[key]; !dup {
			s.order = append(s.order, key)
		}
		s.models[key] = m
	}
	return s
}

// Model resolves a selector, case-insensitively.
func (s *PredictionService) Model(key string) (RegisteredModel, error) {
	m, ok := s.models[strings.ToLower(key)]
	if !ok {
		return RegisteredModel{}, &model.UnknownModelError{Name: key}
	}
	return m, nil
}

// GetAvailableModels lists the registered models in registration order.
func (s *PredictionService) GetAvailableModels() []model.ModelInfo {
	infos := make([]model.ModelInfo, 0, len(s.order))
	for _, k := range s.order {
		infos = append(infos, s.models[k].Info())
	}
	return infos
}

// Columns returns the feature layout every model receives.
func (s *PredictionService) Columns() model.TrainColumns {
	return s.encoder.Columns()
}

// Predict encodes a raw payload and runs it through the selected model.
func (s *PredictionService) Predict(ctx context.Context, modelKey string, raw map[string]any) (*model.Prediction, error) {
	m, err := s.Model(modelKey)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	enc, err := s.encoder.Encode(raw)
	if err != nil {
		observability.ObservePrediction(m.Key, observability.StatusInvalidInput, time.Since(start))
		return nil, fmt.Errorf("failed to prepare features: %w", err)
	}

	if enc.LocationFallback {
		observability.CountFallback(model.FieldLocation)
		s.logger.DebugContext(ctx, "unseen location mapped to fallback indicator",
			"location", enc.Record.Location,
			"request_id", observability.RequestID(ctx),
		)
	}
	if enc.CarModelFallback {
		observability.CountFallback(model.FieldCarModel)
		s.logger.DebugContext(ctx, "unseen car model mapped to fallback indicator",
			"car_model", enc.Record.CarModel,
			"request_id", observability.RequestID(ctx),
		)
	}

	price, err := m.Regressor.Predict(ctx, enc.Vector)
	if err == nil && (math.IsNaN(price) || math.IsInf(price, 0)) {
		err = fmt.Errorf("non-finite prediction %v", price)
	}
	if err != nil {
		observability.ObservePrediction(m.Key, observability.StatusError, time.Since(start))
		return nil, &model.PredictionError{Model: m.Name, Err: err}
	}
	observability.ObservePrediction(m.Key, observability.StatusOK, time.Since(start))

	s.record(ctx, m, enc, price)

	return &model.Prediction{
		ModelKey:  m.Key,
		ModelName: m.Name,
		Input:     enc.Record,
		Price:     price,
	}, nil
}

// record writes the prediction to the log. Failures never reach the caller.
func (s *PredictionService) record(ctx context.Context, m RegisteredModel, enc model.Encoding, price float64) {
	if !s.saveData {
		return
	}

	entry := model.PredictionLogEntry{
		ID:               uuid.NewString(),
		RequestID:        observability.RequestID(ctx),
		Model:            m.Key,
		Year:             enc.Record.Year,
		OdometerKm:       enc.Record.OdometerKm,
		Doors:            enc.Record.Doors,
		Accidents:        enc.Record.Accidents,
		Location:         enc.Record.Location,
		CarModel:         enc.Record.CarModel,
		LocationFallback: enc.LocationFallback,
		CarModelFallback: enc.CarModelFallback,
		Prediction:       price,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.recorder.SavePrediction(ctx, entry); err != nil {
		observability.CountRecorderError()
		s.logger.WarnContext(ctx, "failed to record prediction",
			"error", err,
			"request_id", entry.RequestID,
		)
	}
}

// RecentPredictions returns the newest logged predictions. An empty modelKey
// returns all models.
func (s *PredictionService) RecentPredictions(ctx context.Context, modelKey string, limit int) ([]model.PredictionLogEntry, error) {
	if s.predictionLog == nil {
		return nil, ErrPredictionLogDisabled
	}

	key := ""
	if modelKey != "" {
		m, err := s.Model(modelKey)
		if err != nil {
			return nil, err
		}
		key = m.Key
	}
	return s.predictionLog.ListRecent(ctx, key, limit)
}
