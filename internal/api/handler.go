package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"car_price_service/internal/core"
	"car_price_service/internal/domain/model"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 50

type Handler struct {
	service   *core.PredictionService
	logger    *slog.Logger
	startedAt time.Time
}

func NewHandler(service *core.PredictionService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		logger:    logger,
		startedAt: time.Now(),
	}
}

type PredictResponse struct {
	Model      string          `json:"model"`
	Input      model.RawRecord `json:"input"`
	Prediction float64         `json:"prediction"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Columns int    `json:"columns"`
}

// Home describes the API.
func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Car Price Prediction API",
		"endpoints": gin.H{
			"POST /predict?model=lr|rf": gin.H{
				"expects_json": gin.H{
					model.FieldYear:       "int",
					model.FieldOdometerKm: "number",
					model.FieldDoors:      "int",
					model.FieldAccidents:  "int",
					model.FieldLocation:   "City|Suburb|Rural",
					model.FieldCarModel:   "string",
				},
			},
			"GET /models":      "available models",
			"GET /predictions": "recently served predictions, when the prediction log is enabled",
			"GET /health":      "liveness",
			"GET /metrics":     "prometheus metrics",
		},
	})
}

// Predict serves POST /predict?model=lr|rf.
func (h *Handler) Predict(c *gin.Context) {
	choice := strings.ToLower(c.Query("model"))
	if _, err := h.service.Model(choice); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	payload := decodeObject(c.Request)
	if missing := missingFields(payload); len(missing) > 0 {
		err := &model.MissingFieldsError{Fields: missing}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Missing: missing})
		return
	}

	prediction, err := h.service.Predict(c.Request.Context(), choice, payload)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.WarnContext(c.Request.Context(), "prediction failed",
			"model", choice,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to prepare/predict: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		Model:      prediction.ModelName,
		Input:      prediction.Input,
		Prediction: roundPrice(prediction.Price),
	})
}

// GetModels lists the models that can be selected.
func (h *Handler) GetModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  h.service.GetAvailableModels(),
		"columns": h.service.Columns(),
	})
}

// ListPredictions returns recently logged predictions.
func (h *Handler) ListPredictions(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.service.RecentPredictions(c.Request.Context(), c.Query("model"), limit)
	switch {
	case errors.Is(err, core.ErrPredictionLogDisabled):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		h.logger.ErrorContext(c.Request.Context(), "failed to list predictions", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"predictions": entries})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		Columns: len(h.service.Columns()),
	})
}

// decodeObject reads the body as a single JSON object. Anything else, including
// an empty or malformed body or trailing data, yields an empty object so that
// every field is reported missing.
func decodeObject(r *http.Request) map[string]any {
	if r.Body == nil {
		return map[string]any{}
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return map[string]any{}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return map[string]any{}
	}
	return payload
}

func missingFields(payload map[string]any) []string {
	var missing []string
	for _, f := range model.RequiredFields {
		if _, ok := payload[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// roundPrice rounds to cents, ties to even.
func roundPrice(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
