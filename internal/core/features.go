package core

import (
	"strings"

	"car_price_service/internal/domain/model"
)

// ReferenceYear is the "current year" the training pipeline aged cars against.
const ReferenceYear = 2025

// Defaults applied to payload fields that are absent.
const (
	DefaultYear       = ReferenceYear
	DefaultOdometerKm = 0.0
	DefaultDoors      = 4
	DefaultAccidents  = 0
	DefaultLocation   = "City"
	DefaultCarModel   = "Unknown"
)

// NumericColumns are the raw and engineered numeric features, in the order the
// training pipeline appended them to the frame.
var NumericColumns = []string{
	model.FieldYear,
	model.FieldOdometerKm,
	model.FieldDoors,
	model.FieldAccidents,
	model.ColumnCarAge,
	model.ColumnDoorsPerAccident,
	model.ColumnOdometerPerYear,
}

// DerivedFeatures holds the engineered columns computed from a raw record.
type DerivedFeatures struct {
	CarAge           float64
	DoorsPerAccident float64
	OdometerPerYear  float64
}

// Derive computes the engineered features. A zero denominator is replaced by
// one, matching how the training frame was built. Only exact zeros are
// replaced: a future model year or negative accident count keeps its sign.
func Derive(year, odometerKm, doors, accidents float64) DerivedFeatures {
	carAge := ReferenceYear - year
	return DerivedFeatures{
		CarAge:           carAge,
		DoorsPerAccident: doors / orOne(accidents),
		OdometerPerYear:  odometerKm / orOne(carAge),
	}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// NumericValues returns the values for NumericColumns, index-aligned.
func NumericValues(year, odometerKm, doors, accidents float64) []float64 {
	d := Derive(year, odometerKm, doors, accidents)
	return []float64{
		year,
		odometerKm,
		doors,
		accidents,
		d.CarAge,
		d.DoorsPerAccident,
		d.OdometerPerYear,
	}
}

// IndicatorColumn names the one-hot column for a category value.
func IndicatorColumn(prefix, value string) string {
	return prefix + value
}

// IsIndicator reports whether column is a Location or CarModel one-hot column.
func IsIndicator(column string) bool {
	return strings.HasPrefix(column, model.LocationPrefix) ||
		strings.HasPrefix(column, model.CarModelPrefix)
}

// Standardize applies a fitted (mean, scale) pair.
func Standardize(value, mean, scale float64) float64 {
	return (value - mean) / scale
}
