package mlclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"car_price_service/internal/domain/model"
)

// ModelServerClient reads metadata from the external model server.
type ModelServerClient struct {
	baseURL string
	client  *http.Client
}

func NewModelServerClient(baseURL string, timeout time.Duration) *ModelServerClient {
	return &ModelServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetAvailableModels returns the models the server can run.
func (c *ModelServerClient) GetAvailableModels(ctx context.Context) ([]model.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var models []model.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	return models, nil
}

// RequireModels fails unless every key is served with the expected width.
func (c *ModelServerClient) RequireModels(ctx context.Context, features int, keys ...string) error {
	models, err := c.GetAvailableModels(ctx)
	if err != nil {
		return err
	}

	served := make(map[string]model.ModelInfo, len(models))
	for _, m := range models {
		served[strings.ToLower(m.Key)] = m
	}

	for _, k := range keys {
		m, ok := served[k]
		if !ok {
			return fmt.Errorf("model server does not serve %q", k)
		}
		if m.Features != 0 && m.Features != features {
			return fmt.Errorf("model %q expects %d features, train columns have %d", k, m.Features, features)
		}
	}
	return nil
}
