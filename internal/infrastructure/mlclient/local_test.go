package mlclient_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_price_service/internal/domain/model"
	"car_price_service/internal/domain/repository"
	"car_price_service/internal/infrastructure/mlclient"
)

var threeColumns = model.TrainColumns{"Year", "Location_City", "CarModel_A"}

func vector(values ...float64) model.EncodedVector {
	return model.EncodedVector{Columns: threeColumns, Values: values}
}

// stump splits on feature 0 at 0.5.
func stump(low, high float64) mlclient.Tree {
	return mlclient.Tree{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0.5, -2, -2},
		Value:         []float64{0, low, high},
	}
}

func TestLinearRegressor_Predict(t *testing.T) {
	r, err := mlclient.NewLinearRegressor(mlclient.LinearModel{
		Coef:      []float64{1000, -250, 40},
		Intercept: 15000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Features())

	got, err := r.Predict(context.Background(), vector(0.5, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 15000+500-250, got, 1e-9)

	_, err = r.Predict(context.Background(), vector(1, 2))
	assert.ErrorContains(t, err, "shape mismatch")
}

func TestNewLinearRegressor_Errors(t *testing.T) {
	_, err := mlclient.NewLinearRegressor(mlclient.LinearModel{})
	assert.Error(t, err)

	_, err = mlclient.NewLinearRegressor(mlclient.LinearModel{
		FeatureNames: []string{"Year"},
		Coef:         []float64{1, 2},
	})
	assert.Error(t, err)
}

func TestForestRegressor_Predict(t *testing.T) {
	r, err := mlclient.NewForestRegressor(mlclient.ForestModel{
		NFeatures:  3,
		Estimators: []mlclient.Tree{stump(10000, 20000), stump(12000, 16000)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Features())

	low, err := r.Predict(context.Background(), vector(0.5, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 11000.0, low, "threshold is inclusive on the left")

	high, err := r.Predict(context.Background(), vector(0.6, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 18000.0, high)

	_, err = r.Predict(context.Background(), vector(0.6))
	assert.ErrorContains(t, err, "shape mismatch")
}

func TestForestRegressor_SplitsOnFloat32(t *testing.T) {
	// 0.50000001 rounds to 0.5 in float32 and therefore goes left.
	r, err := mlclient.NewForestRegressor(mlclient.ForestModel{
		NFeatures:  3,
		Estimators: []mlclient.Tree{stump(1, 2)},
	})
	require.NoError(t, err)

	got, err := r.Predict(context.Background(), vector(0.50000001, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNewForestRegressor_Errors(t *testing.T) {
	cyclic := stump(1, 2)
	cyclic.ChildrenLeft[0] = 0

	badFeature := stump(1, 2)
	badFeature.Feature[0] = 7

	short := stump(1, 2)
	short.Threshold = short.Threshold[:2]

	tests := []struct {
		name string
		m    mlclient.ForestModel
	}{
		{"no estimators", mlclient.ForestModel{NFeatures: 3}},
		{"no feature count", mlclient.ForestModel{Estimators: []mlclient.Tree{stump(1, 2)}}},
		{"cycle", mlclient.ForestModel{NFeatures: 3, Estimators: []mlclient.Tree{cyclic}}},
		{"feature out of range", mlclient.ForestModel{NFeatures: 3, Estimators: []mlclient.Tree{badFeature}}},
		{"ragged arrays", mlclient.ForestModel{NFeatures: 3, Estimators: []mlclient.Tree{short}}},
		{"empty tree", mlclient.ForestModel{NFeatures: 3, Estimators: []mlclient.Tree{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mlclient.NewForestRegressor(tt.m)
			assert.Error(t, err)
		})
	}
}

func TestLoadRegressors(t *testing.T) {
	dir := t.TempDir()
	lrPath := filepath.Join(dir, repository.LinearModelFile)
	rfPath := filepath.Join(dir, repository.ForestModelFile)

	require.NoError(t, repository.SaveJSON(lrPath, mlclient.LinearModel{
		FeatureNames: threeColumns,
		Coef:         []float64{1, 2, 3},
		Intercept:    4,
	}))
	require.NoError(t, repository.SaveJSON(rfPath, mlclient.ForestModel{
		FeatureNames: threeColumns,
		NFeatures:    3,
		Estimators:   []mlclient.Tree{stump(5, 6)},
	}))

	lr, err := mlclient.LoadLinearRegressor(lrPath, threeColumns)
	require.NoError(t, err)
	got, err := lr.Predict(context.Background(), vector(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	rf, err := mlclient.LoadForestRegressor(rfPath, threeColumns)
	require.NoError(t, err)
	assert.Equal(t, 3, rf.Features())

	t.Run("column order must match", func(t *testing.T) {
		reordered := model.TrainColumns{"Location_City", "Year", "CarModel_A"}
		_, err := mlclient.LoadLinearRegressor(lrPath, reordered)
		assert.ErrorIs(t, err, model.ErrArtifactLoad)

		_, err = mlclient.LoadForestRegressor(rfPath, reordered)
		assert.ErrorIs(t, err, model.ErrArtifactLoad)
	})

	t.Run("width must match", func(t *testing.T) {
		_, err := mlclient.LoadLinearRegressor(lrPath, threeColumns[:2])
		assert.ErrorIs(t, err, model.ErrArtifactLoad)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := mlclient.LoadForestRegressor(filepath.Join(dir, "absent.json"), threeColumns)
		assert.ErrorIs(t, err, model.ErrArtifactLoad)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
