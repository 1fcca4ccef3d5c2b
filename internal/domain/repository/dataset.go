package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"car_price_service/internal/domain/model"
)

// missingMarkers are the cell values read as "missing", on top of the empty
// string. The list follows the pandas read_csv defaults the dataset was
// produced with.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

var datasetColumns = []string{
	model.FieldYear,
	model.FieldOdometerKm,
	model.FieldDoors,
	model.FieldAccidents,
	model.FieldLocation,
	model.FieldCarModel,
	model.ColumnPrice,
}

// ReadListings parses a raw car dataset. It returns the numeric columns in file
// order (Price included) and one listing per data row. Columns outside the
// known dataset layout are ignored.
func ReadListings(r io.Reader) ([]string, []model.Listing, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, c := range datasetColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("dataset is missing columns %v", missing)
	}

	var base []string
	for _, h := range header {
		h = strings.TrimSpace(h)
		switch h {
		case model.FieldYear, model.FieldOdometerKm, model.FieldDoors, model.FieldAccidents, model.ColumnPrice:
			base = append(base, h)
		}
	}

	var listings []model.Listing
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read line %d: %w", line, err)
		}

		cell := func(name string) string {
			return strings.TrimSpace(record[pos[name]])
		}

		var l model.Listing
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{model.FieldYear, &l.Year},
			{model.FieldOdometerKm, &l.OdometerKm},
			{model.FieldDoors, &l.Doors},
			{model.FieldAccidents, &l.Accidents},
		} {
			v, err := parseNumber(cell(f.name))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d, %s: %w", line, f.name, err)
			}
			*f.dst = v
		}

		if l.Price, err = ParsePrice(cell(model.ColumnPrice)); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		l.Location = category(cell(model.FieldLocation))
		l.CarModel = category(cell(model.FieldCarModel))

		listings = append(listings, l)
	}

	return base, listings, nil
}

// ParsePrice strips currency formatting ("$12,500") and parses the rest.
// Missing cells parse to NaN.
func ParsePrice(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return v, nil
}

func parseNumber(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func category(s string) string {
	if isMissing(s) {
		return ""
	}
	return s
}

func isMissing(s string) bool {
	if s == "" {
		return true
	}
	_, ok := missingMarkers[s]
	return ok
}

// WriteTable writes an encoded dataset as CSV. Missing values are written as
// empty cells.
func WriteTable(w io.Writer, header []string, rows [][]float64) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d values, header has %d", i, len(row), len(header))
		}
		for j, v := range row {
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
