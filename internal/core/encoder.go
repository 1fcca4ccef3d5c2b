package core

import (
	"fmt"
	"strings"

	"car_price_service/internal/domain/model"
)

// Encoder turns raw car records into feature rows laid out exactly like the
// training frame. Everything it needs is resolved from the artifacts once, in
// NewEncoder; Encode only reads that state, so one Encoder may be shared by
// any number of goroutines.
type Encoder struct {
	columns model.TrainColumns
	index   map[string]int

	// numeric[i] is the position of NumericColumns[i], or -1 when training
	// dropped that column.
	numeric []int

	locationFallback int
	carModelFallback int

	scaling []scaleParam
}

type scaleParam struct {
	index int
	mean  float64
	scale float64
}

// NewEncoder builds the column index and scaling plan for the given artifacts.
// Scaler features that are not train columns are ignored, and indicator
// columns are never scaled.
func NewEncoder(columns model.TrainColumns, scaler model.Scaler) (*Encoder, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("train columns are empty")
	}
	if len(scaler.Mean) != len(scaler.FeatureNames) || len(scaler.Scale) != len(scaler.FeatureNames) {
		return nil, fmt.Errorf("scaler has %d features, %d means and %d scales",
			len(scaler.FeatureNames), len(scaler.Mean), len(scaler.Scale))
	}

	e := &Encoder{
		columns:          columns,
		index:            make(map[string]int, len(columns)),
		numeric:          make([]int, len(NumericColumns)),
		locationFallback: -1,
		carModelFallback: -1,
	}

	for i, col := range columns {
		if _, dup := e.index[col]; dup {
			return nil, fmt.Errorf("duplicate train column %q", col)
		}
		e.index[col] = i

		if e.locationFallback < 0 && strings.HasPrefix(col, model.LocationPrefix) {
			e.locationFallback = i
		}
		if e.carModelFallback < 0 && strings.HasPrefix(col, model.CarModelPrefix) {
			e.carModelFallback = i
		}
	}

	if e.locationFallback < 0 {
		return nil, fmt.Errorf("train columns have no %s indicator", model.LocationPrefix)
	}
	if e.carModelFallback < 0 {
		return nil, fmt.Errorf("train columns have no %s indicator", model.CarModelPrefix)
	}

	for i, name := range NumericColumns {
		pos, ok := e.index[name]
		if !ok {
			pos = -1
		}
		e.numeric[i] = pos
	}

	for i, name := range scaler.FeatureNames {
		pos, ok := e.index[name]
		if !ok || IsIndicator(name) {
			continue
		}
		if scaler.Scale[i] == 0 {
			return nil, fmt.Errorf("scaler feature %q has zero scale", name)
		}
		e.scaling = append(e.scaling, scaleParam{
			index: pos,
			mean:  scaler.Mean[i],
			scale: scaler.Scale[i],
		})
	}

	return e, nil
}

// Columns returns the train column layout of every encoded row.
func (e *Encoder) Columns() model.TrainColumns {
	return e.columns
}

// ScaledColumns returns the names of the columns the scaler is applied to.
func (e *Encoder) ScaledColumns() []string {
	names := make([]string, len(e.scaling))
	for i, p := range e.scaling {
		names[i] = e.columns[p.index]
	}
	return names
}

// Encode coerces a decoded JSON payload and encodes it.
func (e *Encoder) Encode(raw map[string]any) (model.Encoding, error) {
	rec, err := CoerceRecord(raw)
	if err != nil {
		return model.Encoding{}, err
	}
	return e.EncodeRecord(rec), nil
}

// EncodeRecord builds the scaled feature row for an already typed record.
func (e *Encoder) EncodeRecord(rec model.RawRecord) model.Encoding {
	values := make([]float64, len(e.columns))

	numeric := NumericValues(
		float64(rec.Year),
		rec.OdometerKm,
		float64(rec.Doors),
		float64(rec.Accidents),
	)
	for i, v := range numeric {
		if pos := e.numeric[i]; pos >= 0 {
			values[pos] = v
		}
	}

	locPos, locFallback := e.indicator(model.LocationPrefix, rec.Location, e.locationFallback)
	values[locPos] = 1
	modelPos, modelFallback := e.indicator(model.CarModelPrefix, rec.CarModel, e.carModelFallback)
	values[modelPos] = 1

	for _, p := range e.scaling {
		values[p.index] = Standardize(values[p.index], p.mean, p.scale)
	}

	return model.Encoding{
		Record:           rec,
		Vector:           model.EncodedVector{Columns: e.columns, Values: values},
		LocationFallback: locFallback,
		CarModelFallback: modelFallback,
	}
}

// indicator resolves the one-hot column for value. Categories unseen at
// training time map to the first indicator of their kind.
func (e *Encoder) indicator(prefix, value string, fallback int) (int, bool) {
	if pos, ok := e.index[IndicatorColumn(prefix, value)]; ok {
		return pos, false
	}
	return fallback, true
}
