package model

import "context"

// Regressor is an opaque trained model that maps an encoded row to a price.
type Regressor interface {
	Predict(ctx context.Context, vector EncodedVector) (float64, error)
}

// ModelInfo describes a model available for prediction.
type ModelInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Backend  string `json:"backend"`
	Features int    `json:"features"`
}
