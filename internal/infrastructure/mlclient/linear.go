package mlclient

import (
	"context"
	"fmt"

	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
)

// LinearModel is an exported LinearRegression: coef_, intercept_ and the
// feature names it was fit on.
type LinearModel struct {
	FeatureNames []string  `json:"feature_names_in"`
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
}

type LinearRegressor struct {
	model LinearModel
}

func NewLinearRegressor(m LinearModel) (*LinearRegressor, error) {
	if len(m.Coef) == 0 {
		return nil, fmt.Errorf("linear model has no coefficients")
	}
	if len(m.FeatureNames) > 0 && len(m.FeatureNames) != len(m.Coef) {
		return nil, fmt.Errorf("linear model has %d feature names for %d coefficients", len(m.FeatureNames), len(m.Coef))
	}
	return &LinearRegressor{model: m}, nil
}

// LoadLinearRegressor reads an exported linear model and checks it against the
// train column layout.
func LoadLinearRegressor(path string, columns model.TrainColumns) (*LinearRegressor, error) {
	var m LinearModel
	if err := repository.LoadJSON(path, &m); err != nil {
		return nil, err
	}
	if err := checkFeatureNames(m.FeatureNames, len(m.Coef), columns); err != nil {
		return nil, &model.ArtifactLoadError{Path: path, Err: err}
	}
	r, err := NewLinearRegressor(m)
	if err != nil {
		return nil, &model.ArtifactLoadError{Path: path, Err: err}
	}
	return r, nil
}

func (r *LinearRegressor) Predict(_ context.Context, vector model.EncodedVector) (float64, error) {
	if vector.Len() != len(r.model.Coef) {
		return 0, fmt.Errorf("shape mismatch: model expects %d features, got %d", len(r.model.Coef), vector.Len())
	}

	sum := r.model.Intercept
	for i, x := range vector.Values {
		sum += r.model.Coef[i] * x
	}
	return sum, nil
}

// Features returns the number of inputs the model expects.
func (r *LinearRegressor) Features() int {
	return len(r.model.Coef)
}

// checkFeatureNames verifies an exported model was fit on the same columns, in
// the same order, as the encoder produces. Models exported without names are
// only checked for width.
func checkFeatureNames(names []string, width int, columns model.TrainColumns) error {
	if width != len(columns) {
		return fmt.Errorf("model expects %d features, train columns have %d", width, len(columns))
	}
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(columns) {
		return fmt.Errorf("model has %d feature names, train columns have %d", len(names), len(columns))
	}
	for i := range names {
		if names[i] != columns[i] {
			return fmt.Errorf("feature %d is %q, train column is %q", i, names[i], columns[i])
		}
	}
	return nil
}
