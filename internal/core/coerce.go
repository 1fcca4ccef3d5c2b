package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"car_price_service/internal/domain/model"
)

// CoerceRecord converts a decoded JSON object into a typed record. Absent
// fields take their defaults; values of the wrong type, null included, fail
// with *model.InvalidInputError. A null category becomes "None".
// nullCategory is what a null Location or CarModel encodes as. It is never a
// trained category, so it takes the first-indicator fallback.
const nullCategory = "None"

func CoerceRecord(raw map[string]any) (model.RawRecord, error) {
	var (
		rec model.RawRecord
		err error
	)

	if rec.Year, err = intField(raw, model.FieldYear, DefaultYear); err != nil {
		return model.RawRecord{}, err
	}
	if rec.OdometerKm, err = floatField(raw, model.FieldOdometerKm, DefaultOdometerKm); err != nil {
		return model.RawRecord{}, err
	}
	if rec.Doors, err = intField(raw, model.FieldDoors, DefaultDoors); err != nil {
		return model.RawRecord{}, err
	}
	if rec.Accidents, err = intField(raw, model.FieldAccidents, DefaultAccidents); err != nil {
		return model.RawRecord{}, err
	}
	if rec.Location, err = stringField(raw, model.FieldLocation, DefaultLocation); err != nil {
		return model.RawRecord{}, err
	}
	if rec.CarModel, err = stringField(raw, model.FieldCarModel, DefaultCarModel); err != nil {
		return model.RawRecord{}, err
	}

	return rec, nil
}

func intField(raw map[string]any, field string, def int) (int, error) {
	v, ok := raw[field]
	if !ok {
		return def, nil
	}

	invalid := &model.InvalidInputError{Field: field, Expected: "an integer", Value: v}
	switch x := v.(type) {
	case nil:
		return 0, invalid
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return truncate(x, invalid)
	case json.Number:
		if n, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			return int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, invalid
		}
		return truncate(f, invalid)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, invalid
		}
		return n, nil
	default:
		return 0, invalid
	}
}

func truncate(f float64, invalid error) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, invalid
	}
	return int(math.Trunc(f)), nil
}

func floatField(raw map[string]any, field string, def float64) (float64, error) {
	v, ok := raw[field]
	if !ok {
		return def, nil
	}

	invalid := &model.InvalidInputError{Field: field, Expected: "a number", Value: v}
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, invalid
	case bool:
		if x {
			f = 1
		}
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, invalid
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, invalid
		}
		f = parsed
	default:
		return 0, invalid
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid
	}
	return f, nil
}

func stringField(raw map[string]any, field, def string) (string, error) {
	v, ok := raw[field]
	if !ok {
		return def, nil
	}

	switch x := v.(type) {
	case nil:
		return nullCategory, nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", &model.InvalidInputError{Field: field, Expected: "a string", Value: v}
	}
}
