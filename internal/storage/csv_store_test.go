package storage

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReadSeriesCSV(t *testing.T) {
	input := strings.Join([]string{
		"Date,Open,High,Low,Close,Adj Close,Volume,Market Cap,Delta,DeltaPercent",
		"2023-01-04,11,12,10,11.5,11.5,2000,1100000,0.5,4.545",
		"2023-01-03,10,11,9,10.5,10.5,1500,1000000,0.5,5",
	}, "\n")

	series, err := ReadSeriesCSV("ACME", strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	assert.Equal(t, "ACME", series.Symbol)
	assert.Equal(t, day("2023-01-03"), series.FirstDate(), "records are sorted by date")
	assert.Equal(t, 10.0, series.Records[0].Open)
	assert.Equal(t, 1500.0, series.Records[0].Volume)
	assert.Equal(t, 1000000.0, series.Records[0].MarketCap)
	assert.Equal(t, 5.0, series.Records[0].DeltaPercent)
}

func TestReadSeriesCSV_ColumnOrderAndNulls(t *testing.T) {
	input := "DeltaPercent,Date,Close\nnull,2023-01-03,10\n1.5,2023-01-04,\n"

	series, err := ReadSeriesCSV("ACME", strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	assert.True(t, math.IsNaN(series.Records[0].DeltaPercent))
	assert.Equal(t, 10.0, series.Records[0].Close)
	assert.Equal(t, 1.5, series.Records[1].DeltaPercent)
	assert.True(t, math.IsNaN(series.Records[1].Close))
	assert.Equal(t, 0.0, series.Records[1].Open, "absent columns stay zero")
}

func TestReadSeriesCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no date column", "Open,Close\n1,2\n"},
		{"bad date", "Date,Close\n01/03/2023,2\n"},
		{"bad number", "Date,Close\n2023-01-03,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSeriesCSV("ACME", strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestCSVStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(dir)
	ctx := context.Background()

	series := models.NewInstrumentSeries("BRK/A", []models.DailyRecord{
		{Date: day("2023-01-03"), Open: 10, Close: 11, Volume: 100, Delta: 1, DeltaPercent: 10},
		{Date: day("2023-01-04"), Open: 11, Close: 10, Volume: 200, Delta: -1, DeltaPercent: -9.0909},
	})
	require.NoError(t, store.Save(ctx, series))

	assert.True(t, store.Exists("BRK/A"))
	assert.Equal(t, filepath.Join(dir, "BRK_A.csv"), store.Path("BRK/A"))

	loaded, err := store.Load(ctx, "BRK/A")
	require.NoError(t, err)
	assert.Equal(t, series.Records, loaded.Records)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestCSVStore_LoadMissing(t *testing.T) {
	store := NewCSVStore(t.TempDir())

	_, err := store.Load(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSeriesNotFound))
	assert.False(t, store.Exists("NOPE"))
}

func TestCSVStore_LoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.csv"), []byte("Date,Close\nyesterday,1\n"), 0o644))

	_, err := NewCSVStore(dir).Load(context.Background(), "BAD")
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrSeriesNotFound))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "AAPL", FileName("AAPL"))
	assert.Equal(t, "BRK_A", FileName("BRK/A"))
	assert.Equal(t, "__x", FileName("../x"))
}

func TestOpen_CSV(t *testing.T) {
	cfg := &config.Config{Data: config.DataConfig{StoreType: "csv", CleanDir: t.TempDir()}}

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Backend.(*CSVStore)
	assert.True(t, ok)
	assert.Equal(t, b.Backend, b.Reader)

	_, err = Open(context.Background(), &config.Config{Data: config.DataConfig{StoreType: "sqlite"}})
	assert.Error(t, err)
}
