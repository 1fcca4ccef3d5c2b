package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_price_service/internal/core"
	"car_price_service/internal/domain/repository"
)

const rawDataset = `Year,Odometer_km,Doors,Accidents,Location,CarModel,Price
2018,10000,4,0,City,Model A,"$10,000"
2020,20000,2,1,Subrb,Model B,12000
2015,30000,4,2,??,Model A,14000
2022,40000,4,0,Rural,Model B,16000
2018,10000,4,0,City,Model A,"$10,000"
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(raw, []byte(rawDataset), 0644))

	outDir := filepath.Join(dir, "models")
	clean := filepath.Join(dir, "data", "clean.csv")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, run(logger, raw, outDir, clean))

	columns, scaler, err := repository.NewArtifactStore(outDir).Load()
	require.NoError(t, err)
	assert.Contains(t, columns, "Location_Suburb")
	assert.NotContains(t, columns, "Location_Subrb")
	assert.NotContains(t, columns, "Price")

	_, err = core.NewEncoder(columns, scaler)
	require.NoError(t, err)

	out, err := os.ReadFile(clean)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 5, "header plus four deduplicated rows")
	assert.True(t, strings.HasPrefix(lines[0], "Year,Odometer_km,Doors,Accidents,Price,Location_City"))
}

func TestRun_MissingDataset(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(logger, filepath.Join(t.TempDir(), "absent.csv"), t.TempDir(), "")
	assert.Error(t, err)
}
