package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_price_service/internal/api"
	"car_price_service/internal/core"
	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
)

const exampleBody = `{"Year": 2018, "Odometer_km": 85000, "Doors": 4, "Accidents": 1, "Location": "Suburb", "CarModel": "Model B"}`

type fixedRegressor struct {
	price float64
	err   error
}

func (r fixedRegressor) Predict(context.Context, model.EncodedVector) (float64, error) {
	return r.price, r.err
}

type stubPredictionLog struct {
	entries []model.PredictionLogEntry
}

func (s stubPredictionLog) ListRecent(context.Context, string, int) ([]model.PredictionLogEntry, error) {
	return s.entries, nil
}

func newTestRouter(t *testing.T, lr model.Regressor, plog repository.PredictionLog) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	columns := model.TrainColumns{
		"Year", "Odometer_km", "Doors", "Accidents",
		"Location_City", "Location_Rural", "Location_Suburb",
		"CarModel_Model A", "CarModel_Model B",
		"CarAge", "Doors_per_Accident", "Odometer_per_Year",
	}
	scaler := model.Scaler{
		FeatureNames: []string{"Year", "Odometer_km"},
		Mean:         []float64{2015, 60000},
		Scale:        []float64{4, 30000},
	}
	encoder, err := core.NewEncoder(columns, scaler)
	require.NoError(t, err)

	svc := core.NewPredictionService(encoder, []core.RegisteredModel{
		core.NewRegisteredModel(core.ModelLinear, core.BackendLocal, len(columns), lr),
		core.NewRegisteredModel(core.ModelForest, core.BackendLocal, len(columns), fixedRegressor{price: 14321.5}),
	}, nil, plog, false, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewRouter(api.NewHandler(svc, logger), logger, "*")
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPredict_LinearRegression(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 15234.567}, nil)

	rec := do(router, http.MethodPost, "/predict?model=lr", exampleBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "linear_regression", body["model"])
	assert.Equal(t, 15234.57, body["prediction"])
	assert.Equal(t, map[string]any{
		"Year":        2018.0,
		"Odometer_km": 85000.0,
		"Doors":       4.0,
		"Accidents":   1.0,
		"Location":    "Suburb",
		"CarModel":    "Model B",
	}, body["input"])
}

func TestPredict_UnseenCarModelEndToEnd(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 18999.999}, nil)

	rec := do(router, http.MethodPost, "/predict?model=lr",
		`{"Year": 2020, "Odometer_km": 50000, "Doors": 4, "Accidents": 0, "Location": "City", "CarModel": "Sedan"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "linear_regression", body["model"])
	assert.Equal(t, 19000.0, body["prediction"])
	assert.Equal(t, "Sedan", body["input"].(map[string]any)["CarModel"])
}

func TestPredict_RandomForestIsCaseInsensitive(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	rec := do(router, http.MethodPost, "/predict?model=RF", exampleBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "random_forest", decode(t, rec)["model"])
}

func TestPredict_UnknownCategoriesStillPredict(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 1}, nil)

	body := strings.Replace(exampleBody, `"Suburb"`, `"Atlantis"`, 1)
	rec := do(router, http.MethodPost, "/predict?model=lr", body)
	require.Equal(t, http.StatusOK, rec.Code)

	input := decode(t, rec)["input"].(map[string]any)
	assert.Equal(t, "Atlantis", input["Location"])
}

func TestPredict_UnknownModel(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	for _, target := range []string{"/predict?model=xgb", "/predict"} {
		rec := do(router, http.MethodPost, target, exampleBody)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "Unknown model. Use model=lr or model=rf", decode(t, rec)["error"])
	}
}

func TestPredict_MissingFields(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	rec := do(router, http.MethodPost, "/predict?model=lr",
		`{"Year": 2018, "Odometer_km": 85000, "Location": "City", "CarModel": "Model A"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Missing fields: ['Doors', 'Accidents']", body["error"])
	assert.Equal(t, []any{"Doors", "Accidents"}, body["missing"])
}

func TestPredict_NonObjectBodyReportsEveryField(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	for _, payload := range []string{"", "[1, 2]", "not json", "null", exampleBody + " garbage", exampleBody + " {}"} {
		rec := do(router, http.MethodPost, "/predict?model=rf", payload)
		require.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Len(t, decode(t, rec)["missing"], len(model.RequiredFields), payload)
	}
}

func TestPredict_InvalidInputTypes(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	body := strings.Replace(exampleBody, `"Year": 2018`, `"Year": "two thousand"`, 1)
	rec := do(router, http.MethodPost, "/predict?model=lr", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	msg := decode(t, rec)["error"].(string)
	assert.True(t, strings.HasPrefix(msg, "Failed to prepare/predict: "), msg)
	assert.Contains(t, msg, "Year")
}

func TestPredict_NullNumericField(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 1}, nil)

	body := strings.Replace(exampleBody, `"Year": 2018`, `"Year": null`, 1)
	rec := do(router, http.MethodPost, "/predict?model=lr", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	msg := decode(t, rec)["error"].(string)
	assert.True(t, strings.HasPrefix(msg, "Failed to prepare/predict: "), msg)
	assert.Contains(t, msg, "Year")
}

func TestPredict_NullCategoryFallsBack(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 1}, nil)

	body := strings.Replace(exampleBody, `"Suburb"`, `null`, 1)
	rec := do(router, http.MethodPost, "/predict?model=lr", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "None", decode(t, rec)["input"].(map[string]any)["Location"])
}

func TestPredict_RoundsTiesToEven(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 0.125}, nil)

	rec := do(router, http.MethodPost, "/predict?model=lr", exampleBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.12, decode(t, rec)["prediction"])
}

func TestPredict_RegressorFailure(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{err: errors.New("shape mismatch")}, nil)

	rec := do(router, http.MethodPost, "/predict?model=lr", exampleBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "shape mismatch")
}

func TestGetModels(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	rec := do(router, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	models := body["models"].([]any)
	require.Len(t, models, 2)
	assert.Equal(t, "linear_regression", models[0].(map[string]any)["name"])
	assert.Len(t, body["columns"], 12)
}

func TestHealthAndHome(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	rec := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Car Price Prediction API", decode(t, rec)["message"])
}

func TestListPredictions(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router := newTestRouter(t, fixedRegressor{}, nil)
		rec := do(router, http.MethodGet, "/predictions", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		plog := stubPredictionLog{entries: []model.PredictionLogEntry{{ID: "a", Model: "lr"}}}
		router := newTestRouter(t, fixedRegressor{}, plog)

		rec := do(router, http.MethodGet, "/predictions?model=lr&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["predictions"], 1)
	})

	t.Run("bad limit", func(t *testing.T) {
		router := newTestRouter(t, fixedRegressor{}, stubPredictionLog{})
		rec := do(router, http.MethodGet, "/predictions?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown model", func(t *testing.T) {
		router := newTestRouter(t, fixedRegressor{}, stubPredictionLog{})
		rec := do(router, http.MethodGet, "/predictions?model=xgb", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMiddleware(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(router, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(router, http.MethodOptions, "/predict", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, fixedRegressor{price: 1}, nil)
	do(router, http.MethodPost, "/predict?model=lr", exampleBody)

	rec := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carprice_predictions_total")
}
