package model

import "time"

// Raw payload keys. They double as the numeric column names in TrainColumns.
const (
	FieldYear       = "Year"
	FieldOdometerKm = "Odometer_km"
	FieldDoors      = "Doors"
	FieldAccidents  = "Accidents"
	FieldLocation   = "Location"
	FieldCarModel   = "CarModel"
)

// Engineered and target columns.
const (
	ColumnCarAge           = "CarAge"
	ColumnDoorsPerAccident = "Doors_per_Accident"
	ColumnOdometerPerYear  = "Odometer_per_Year"
	ColumnPrice            = "Price"
)

// One-hot indicator column prefixes.
const (
	LocationPrefix = FieldLocation + "_"
	CarModelPrefix = FieldCarModel + "_"
)

// RequiredFields lists the payload keys every prediction request must carry, in
// the order they are reported when missing.
var RequiredFields = []string{
	FieldYear,
	FieldOdometerKm,
	FieldDoors,
	FieldAccidents,
	FieldLocation,
	FieldCarModel,
}

// RawRecord is a single car after type coercion.
type RawRecord struct {
	Year       int     `json:"Year"`
	OdometerKm float64 `json:"Odometer_km"`
	Doors      int     `json:"Doors"`
	Accidents  int     `json:"Accidents"`
	Location   string  `json:"Location"`
	CarModel   string  `json:"CarModel"`
}

// Listing is one row of the raw training dataset. Missing numeric cells are NaN
// and missing categorical cells are empty.
type Listing struct {
	Year       float64
	OdometerKm float64
	Doors      float64
	Accidents  float64
	Location   string
	CarModel   string
	Price      float64
}

// TrainColumns is the ordered feature layout the models were trained on.
type TrainColumns []string

// Scaler holds standardization parameters exported from a fitted StandardScaler.
// Mean[i] and Scale[i] belong to FeatureNames[i].
type Scaler struct {
	FeatureNames []string  `json:"feature_names_in"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// EncodedVector is one fully engineered feature row. Values[i] is the value of
// Columns[i]; Columns is always the TrainColumns slice it was built from.
type EncodedVector struct {
	Columns []string
	Values  []float64
}

// Len returns the number of features in the row.
func (v EncodedVector) Len() int {
	return len(v.Values)
}

// Get returns the value of the named column.
func (v EncodedVector) Get(column string) (float64, bool) {
	for i, c := range v.Columns {
		if c == column {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Encoding is the result of running a raw payload through the encoder.
type Encoding struct {
	Record           RawRecord
	Vector           EncodedVector
	LocationFallback bool
	CarModelFallback bool
}

// Prediction is a served price estimate.
type Prediction struct {
	ModelKey  string
	ModelName string
	Input     RawRecord
	Price     float64
}

// PredictionLogEntry is one persisted prediction.
type PredictionLogEntry struct {
	ID               string    `db:"id" json:"id"`
	RequestID        string    `db:"request_id" json:"request_id"`
	Model            string    `db:"model" json:"model"`
	Year             int       `db:"year" json:"year"`
	OdometerKm       float64   `db:"odometer_km" json:"odometer_km"`
	Doors            int       `db:"doors" json:"doors"`
	Accidents        int       `db:"accidents" json:"accidents"`
	Location         string    `db:"location" json:"location"`
	CarModel         string    `db:"car_model" json:"car_model"`
	LocationFallback bool      `db:"location_fallback" json:"location_fallback"`
	CarModelFallback bool      `db:"car_model_fallback" json:"car_model_fallback"`
	Prediction       float64   `db:"prediction" json:"prediction"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
