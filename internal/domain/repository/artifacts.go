package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"car_price_service/internal/domain/model"
)

// Artifact file names inside the artifact directory.
const (
	TrainColumnsFile = "train_columns.json"
	ScalerFile       = "scaler.json"
	LinearModelFile  = "lr_model.json"
	ForestModelFile  = "rf_model.json"
)

// ArtifactStore loads the training artifacts from disk once and serves the
// cached copies afterwards.
type ArtifactStore struct {
	dir string

	once    sync.Once
	columns model.TrainColumns
	scaler  model.Scaler
	err     error
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the artifact directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Path returns the full path of an artifact file.
func (s *ArtifactStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load reads and validates the train columns and scaler. Only the first call
// touches the filesystem; later calls return the same result, error included.
func (s *ArtifactStore) Load() (model.TrainColumns, model.Scaler, error) {
	s.once.Do(func() {
		s.columns, s.err = LoadTrainColumns(s.Path(TrainColumnsFile))
		if s.err != nil {
			return
		}
		s.scaler, s.err = LoadScaler(s.Path(ScalerFile))
	})
	return s.columns, s.scaler, s.err
}

// LoadTrainColumns reads a JSON array of column names.
func LoadTrainColumns(path string) (model.TrainColumns, error) {
	var columns model.TrainColumns
	if err := LoadJSON(path, &columns); err != nil {
		return nil, err
	}
	if err := ValidateTrainColumns(columns); err != nil {
		return nil, &model.ArtifactLoadError{Path: path, Err: err}
	}
	return columns, nil
}

// LoadScaler reads an exported StandardScaler.
func LoadScaler(path string) (model.Scaler, error) {
	var scaler model.Scaler
	if err := LoadJSON(path, &scaler); err != nil {
		return model.Scaler{}, err
	}
	if err := ValidateScaler(scaler); err != nil {
		return model.Scaler{}, &model.ArtifactLoadError{Path: path, Err: err}
	}
	return scaler, nil
}

// ValidateTrainColumns checks that the layout is usable by the encoder: non
// empty, free of duplicates, with at least one indicator per categorical.
func ValidateTrainColumns(columns model.TrainColumns) error {
	if len(columns) == 0 {
		return errors.New("no train columns")
	}

	seen := make(map[string]struct{}, len(columns))
	var hasLocation, hasCarModel bool
	for _, c := range columns {
		if c == "" {
			return errors.New("empty column name")
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
		hasLocation = hasLocation || strings.HasPrefix(c, model.LocationPrefix)
		hasCarModel = hasCarModel || strings.HasPrefix(c, model.CarModelPrefix)
	}

	if !hasLocation {
		return fmt.Errorf("no %s indicator column", model.LocationPrefix)
	}
	if !hasCarModel {
		return fmt.Errorf("no %s indicator column", model.CarModelPrefix)
	}
	return nil
}

// ValidateScaler checks the scaler arrays line up and hold usable values.
// Feature names are not checked against the train columns.
func ValidateScaler(s model.Scaler) error {
	n := len(s.FeatureNames)
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("scaler has %d features, %d means and %d scales", n, len(s.Mean), len(s.Scale))
	}
	for i, name := range s.FeatureNames {
		if !finite(s.Mean[i]) || !finite(s.Scale[i]) {
			return fmt.Errorf("feature %q has non-finite parameters", name)
		}
		if s.Scale[i] == 0 {
			return fmt.Errorf("feature %q has zero scale", name)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoadJSON decodes a JSON file into target. Any failure is an
// *model.ArtifactLoadError.
func LoadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &model.ArtifactLoadError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &model.ArtifactLoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// SaveJSON writes data as indented JSON, creating parent directories.
func SaveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
