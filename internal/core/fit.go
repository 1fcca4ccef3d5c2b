package core

import (
	"fmt"
	"math"
	"sort"

	"car_price_service/internal/domain/model"
)

// IQRMultiplier is the k in [Q1 - k*IQR, Q3 + k*IQR].
const IQRMultiplier = 1.5

// locationFixes normalizes known Location typos. An empty replacement marks the
// value as missing.
var locationFixes = map[string]string{
	"Subrb": "Suburb",
	"??":    "",
}

// FitResult is everything the offline pipeline produces.
type FitResult struct {
	Columns model.TrainColumns
	Scaler  model.Scaler
	// Header is Columns with Price inserted at its frame position; Rows hold
	// the cleaned, encoded and scaled dataset in that layout.
	Header []string
	Rows   [][]float64
}

// Fitter reproduces the offline cleaning and encoding pipeline.
type Fitter struct{}

// Fit cleans the listings and derives the train columns, the fitted scaler and
// the encoded dataset. baseColumns gives the dataset's numeric columns in
// file order, Price included; indicator and engineered columns follow them.
func (f *Fitter) Fit(baseColumns []string, listings []model.Listing) (*FitResult, error) {
	if len(listings) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	for _, c := range baseColumns {
		if _, ok := listingValue(model.Listing{}, c); !ok {
			return nil, fmt.Errorf("unsupported base column %q", c)
		}
	}

	rows := make([]model.Listing, len(listings))
	copy(rows, listings)

	for i := range rows {
		if fixed, ok := locationFixes[rows[i].Location]; ok {
			rows[i].Location = fixed
		}
	}

	if err := impute(rows); err != nil {
		return nil, err
	}
	rows = dropDuplicates(rows)
	capOutliers(rows)

	locations := categories(rows, func(l model.Listing) string { return l.Location })
	carModels := categories(rows, func(l model.Listing) string { return l.CarModel })

	header := make([]string, 0, len(baseColumns)+len(locations)+len(carModels)+3)
	header = append(header, baseColumns...)
	for _, v := range locations {
		header = append(header, IndicatorColumn(model.LocationPrefix, v))
	}
	for _, v := range carModels {
		header = append(header, IndicatorColumn(model.CarModelPrefix, v))
	}
	header = append(header, model.ColumnCarAge, model.ColumnDoorsPerAccident, model.ColumnOdometerPerYear)

	table := make([][]float64, len(rows))
	for i, r := range rows {
		table[i] = frameRow(header, r)
	}

	var scaled []int
	for i, c := range header {
		if c == model.ColumnPrice || IsIndicator(c) {
			continue
		}
		scaled = append(scaled, i)
	}

	scaler := fitScaler(header, scaled, table)
	for _, row := range table {
		for j, col := range scaled {
			row[col] = Standardize(row[col], scaler.Mean[j], scaler.Scale[j])
		}
	}

	columns := make(model.TrainColumns, 0, len(header))
	for _, c := range header {
		if c != model.ColumnPrice {
			columns = append(columns, c)
		}
	}

	return &FitResult{
		Columns: columns,
		Scaler:  scaler,
		Header:  header,
		Rows:    table,
	}, nil
}

func impute(rows []model.Listing) error {
	odometer, ok := median(column(rows, func(l model.Listing) float64 { return l.OdometerKm }))
	if !ok {
		return fmt.Errorf("cannot impute %s: no values", model.FieldOdometerKm)
	}

	modes := map[string]float64{}
	for _, c := range []struct {
		name string
		get  func(model.Listing) float64
	}{
		{model.FieldDoors, func(l model.Listing) float64 { return l.Doors }},
		{model.FieldAccidents, func(l model.Listing) float64 { return l.Accidents }},
		{model.FieldYear, func(l model.Listing) float64 { return l.Year }},
	} {
		m, ok := numericMode(column(rows, c.get))
		if !ok {
			return fmt.Errorf("cannot impute %s: no values", c.name)
		}
		modes[c.name] = m
	}

	location, ok := stringMode(rows, func(l model.Listing) string { return l.Location })
	if !ok {
		return fmt.Errorf("cannot impute %s: no values", model.FieldLocation)
	}
	carModel, ok := stringMode(rows, func(l model.Listing) string { return l.CarModel })
	if !ok {
		return fmt.Errorf("cannot impute %s: no values", model.FieldCarModel)
	}

	for i := range rows {
		r := &rows[i]
		if math.IsNaN(r.OdometerKm) {
			r.OdometerKm = odometer
		}
		if math.IsNaN(r.Doors) {
			r.Doors = modes[model.FieldDoors]
		}
		if math.IsNaN(r.Accidents) {
			r.Accidents = modes[model.FieldAccidents]
		}
		if math.IsNaN(r.Year) {
			r.Year = modes[model.FieldYear]
		}
		if r.Location == "" {
			r.Location = location
		}
		if r.CarModel == "" {
			r.CarModel = carModel
		}
	}
	return nil
}

func dropDuplicates(rows []model.Listing) []model.Listing {
	seen := make(map[model.Listing]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := r
		// NaN != NaN, so missing prices are keyed by a fixed sentinel.
		if math.IsNaN(key.Price) {
			key.Price = math.Inf(-1)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func capOutliers(rows []model.Listing) {
	priceLow, priceHigh, okPrice := iqrBounds(column(rows, func(l model.Listing) float64 { return l.Price }), IQRMultiplier)
	odoLow, odoHigh, okOdo := iqrBounds(column(rows, func(l model.Listing) float64 { return l.OdometerKm }), IQRMultiplier)

	for i := range rows {
		if okPrice {
			rows[i].Price = clip(rows[i].Price, priceLow, priceHigh)
		}
		if okOdo {
			rows[i].OdometerKm = clip(rows[i].OdometerKm, odoLow, odoHigh)
		}
	}
}

func clip(v, low, high float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(math.Max(v, low), high)
}

// iqrBounds returns the capping bounds for the non-missing values.
func iqrBounds(values []float64, k float64) (float64, float64, bool) {
	sorted := present(values)
	if len(sorted) == 0 {
		return 0, 0, false
	}
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, true
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func median(values []float64) (float64, bool) {
	sorted := present(values)
	if len(sorted) == 0 {
		return 0, false
	}
	sort.Float64s(sorted)
	return quantile(sorted, 0.5), true
}

// numericMode returns the most frequent value, the smallest one on ties.
func numericMode(values []float64) (float64, bool) {
	counts := map[float64]int{}
	for _, v := range present(values) {
		counts[v]++
	}
	best, bestCount := 0.0, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best, bestCount > 0
}

func stringMode(rows []model.Listing, get func(model.Listing) string) (string, bool) {
	counts := map[string]int{}
	for _, r := range rows {
		if v := get(r); v != "" {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best, bestCount > 0
}

func categories(rows []model.Listing, get func(model.Listing) string) []string {
	set := map[string]struct{}{}
	for _, r := range rows {
		set[get(r)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func column(rows []model.Listing, get func(model.Listing) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func listingValue(l model.Listing, col string) (float64, bool) {
	switch col {
	case model.FieldYear:
		return l.Year, true
	case model.FieldOdometerKm:
		return l.OdometerKm, true
	case model.FieldDoors:
		return l.Doors, true
	case model.FieldAccidents:
		return l.Accidents, true
	case model.ColumnPrice:
		return l.Price, true
	}
	return 0, false
}

// frameRow lays a cleaned listing out in header order, before scaling.
func frameRow(header []string, l model.Listing) []float64 {
	derived := Derive(l.Year, l.OdometerKm, l.Doors, l.Accidents)
	location := IndicatorColumn(model.LocationPrefix, l.Location)
	carModel := IndicatorColumn(model.CarModelPrefix, l.CarModel)

	row := make([]float64, len(header))
	for i, col := range header {
		switch col {
		case model.ColumnCarAge:
			row[i] = derived.CarAge
		case model.ColumnDoorsPerAccident:
			row[i] = derived.DoorsPerAccident
		case model.ColumnOdometerPerYear:
			row[i] = derived.OdometerPerYear
		case location, carModel:
			row[i] = 1
		default:
			if v, ok := listingValue(l, col); ok {
				row[i] = v
			}
		}
	}
	return row
}

// fitScaler computes per-column mean and population standard deviation, the
// way StandardScaler does. A constant column gets scale 1.
func fitScaler(header []string, cols []int, table [][]float64) model.Scaler {
	s := model.Scaler{
		FeatureNames: make([]string, len(cols)),
		Mean:         make([]float64, len(cols)),
		Scale:        make([]float64, len(cols)),
	}
	n := float64(len(table))
	for j, col := range cols {
		var sum float64
		for _, row := range table {
			sum += row[col]
		}
		mean := sum / n

		var sq float64
		for _, row := range table {
			d := row[col] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / n)
		if std == 0 {
			std = 1
		}

		s.FeatureNames[j] = header[col]
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s
}
