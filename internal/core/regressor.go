package core

import "car_price_service/internal/domain/model"

// Model selector keys accepted by the predict endpoint.
const (
	ModelLinear = "lr"
	ModelForest = "rf"
)

// Backends a model can be served from.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

var modelNames = map[string]string{
	ModelLinear: "linear_regression",
	ModelForest: "random_forest",
}

// ModelName returns the public name reported for a selector key.
func ModelName(key string) string {
	if name, ok := modelNames[key]; ok {
		return name
	}
	return key
}

// RegisteredModel binds a selector key to a loaded regressor.
type RegisteredModel struct {
	Key       string
	Name      string
	Backend   string
	Features  int
	Regressor model.Regressor
}

// NewRegisteredModel fills in the public name for key.
func NewRegisteredModel(key, backend string, features int, r model.Regressor) RegisteredModel {
	return RegisteredModel{
		Key:       key,
		Name:      ModelName(key),
		Backend:   backend,
		Features:  features,
		Regressor: r,
	}
}

func (m RegisteredModel) Info() model.ModelInfo {
	return model.ModelInfo{
		Key:      m.Key,
		Name:     m.Name,
		Backend:  m.Backend,
		Features: m.Features,
	}
}
