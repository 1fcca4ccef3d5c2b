package mlclient

import (
	"context"
	"fmt"

	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
)

// leaf marks a node without children in the flattened tree arrays.
const leaf = -1

// Tree is one fitted regression tree flattened the way sklearn stores tree_:
// node i splits on Feature[i] at Threshold[i] and predicts Value[i] when it is
// a leaf.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// ForestModel is an exported RandomForestRegressor.
type ForestModel struct {
	FeatureNames []string `json:"feature_names_in"`
	NFeatures    int      `json:"n_features_in"`
	Estimators   []Tree   `json:"estimators"`
}

type ForestRegressor struct {
	model ForestModel
}

func NewForestRegressor(m ForestModel) (*ForestRegressor, error) {
	if len(m.Estimators) == 0 {
		return nil, fmt.Errorf("forest has no estimators")
	}
	if m.NFeatures <= 0 {
		m.NFeatures = len(m.FeatureNames)
	}
	if m.NFeatures <= 0 {
		return nil, fmt.Errorf("forest does not declare its feature count")
	}
	for i, t := range m.Estimators {
		if err := validateTree(t, m.NFeatures); err != nil {
			return nil, fmt.Errorf("estimator %d: %w", i, err)
		}
	}
	return &ForestRegressor{model: m}, nil
}

// LoadForestRegressor reads an exported random forest and checks it against
// the train column layout.
func LoadForestRegressor(path string, columns model.TrainColumns) (*ForestRegressor, error) {
	var m ForestModel
	if err := repository.LoadJSON(path, &m); err != nil {
		return nil, err
	}
	r, err := NewForestRegressor(m)
	if err != nil {
		return nil, &model.ArtifactLoadError{Path: path, Err: err}
	}
	if err := checkFeatureNames(r.model.FeatureNames, r.model.NFeatures, columns); err != nil {
		return nil, &model.ArtifactLoadError{Path: path, Err: err}
	}
	return r, nil
}

func validateTree(t Tree, nFeatures int) error {
	n := len(t.Value)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n {
		return fmt.Errorf("tree arrays have different lengths")
	}
	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leaf && right == leaf {
			continue
		}
		// Children always come after their parent, which also rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, left, right)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

// Predict averages the estimators' leaf values.
func (r *ForestRegressor) Predict(_ context.Context, vector model.EncodedVector) (float64, error) {
	if vector.Len() != r.model.NFeatures {
		return 0, fmt.Errorf("shape mismatch: model expects %d features, got %d", r.model.NFeatures, vector.Len())
	}

	var sum float64
	for _, t := range r.model.Estimators {
		sum += t.predict(vector.Values)
	}
	return sum / float64(len(r.model.Estimators)), nil
}

// Features returns the number of inputs the model expects.
func (r *ForestRegressor) Features() int {
	return r.model.NFeatures
}

func (t Tree) predict(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		// sklearn evaluates splits on float32 inputs.
		if float64(float32(x[t.Feature[node]])) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}
