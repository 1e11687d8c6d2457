package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	seriesLoadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "series_load_total",
			Help: "Total number of series load operations",
		},
		[]string{"backend", "status"}, // "found", "missing" or "error"
	)

	seriesLoadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "series_load_latency_seconds",
			Help:    "Series load latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"backend"},
	)
)

func observeLoad(backend string, start time.Time, err error) {
	seriesLoadLatency.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		seriesLoadTotal.WithLabelValues(backend, "found").Inc()
	case errors.Is(err, models.ErrSeriesNotFound):
		seriesLoadTotal.WithLabelValues(backend, "missing").Inc()
	default:
		seriesLoadTotal.WithLabelValues(backend, "error").Inc()
	}
}

// CSVStore keeps one processed CSV file per instrument in a directory
type CSVStore struct {
	dir string
}

// NewCSVStore creates a store rooted at dir
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Path returns the file path used for a symbol
func (s *CSVStore) Path(symbol string) string {
	return filepath.Join(s.dir, FileName(symbol)+".csv")
}

// Exists reports whether a file is present for the symbol
func (s *CSVStore) Exists(symbol string) bool {
	info, err := os.Stat(s.Path(symbol))
	return err == nil && !info.IsDir()
}

// Load reads the series of a symbol
func (s *CSVStore) Load(ctx context.Context, symbol string) (series *models.InstrumentSeries, err error) {
	start := time.Now()
	defer func() { observeLoad("csv", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open series for %s: %w", symbol, err)
	}
	defer f.Close()

	series, err = ReadSeriesCSV(symbol, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read series for %s: %w", symbol, err)
	}
	return series, nil
}

// Save writes the series to a temporary file and renames it into place so
// readers never observe a partial file
func (s *CSVStore) Save(ctx context.Context, series *models.InstrumentSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create series directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, FileName(series.Symbol)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSeriesCSV(tmp, series); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write series for %s: %w", series.Symbol, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(series.Symbol))
}

// Close is a no-op for file stores
func (s *CSVStore) Close() error {
	return nil
}
