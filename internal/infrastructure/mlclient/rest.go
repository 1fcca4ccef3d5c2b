package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"car_price_service/internal/domain/model"
)

// HTTPRegressor delegates predictions to an external model server.
type HTTPRegressor struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewHTTPRegressor(baseURL, modelKey string, timeout time.Duration) *HTTPRegressor {
	return &HTTPRegressor{
		endpoint: strings.TrimRight(baseURL, "/") + "/predict",
		model:    modelKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type MLRequest struct {
	Model    string    `json:"model"`
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type MLResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

func (c *HTTPRegressor) Predict(ctx context.Context, vector model.EncodedVector) (float64, error) {
	reqBody := MLRequest{
		Model:    c.model,
		Columns:  vector.Columns,
		Features: vector.Values,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create ML request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	var mlResp MLResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&mlResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && mlResp.Error != "" {
			return 0, fmt.Errorf("ML service returned status %d: %s", resp.StatusCode, mlResp.Error)
		}
		return 0, fmt.Errorf("ML service returned status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("failed to decode ML response: %w", decodeErr)
	}
	if mlResp.Prediction == nil {
		return 0, fmt.Errorf("ML response has no prediction")
	}

	return *mlResp.Prediction, nil
}
