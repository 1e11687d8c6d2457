package storage

import (
	"context"
	"strings"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// SeriesStore loads processed per-instrument series. A missing instrument is
// reported with models.ErrSeriesNotFound and is a normal outcome.
type SeriesStore interface {
	// Load retrieves the full series for a symbol, ordered by date
	Load(ctx context.Context, symbol string) (*models.InstrumentSeries, error)
}

// SeriesWriter persists processed series
type SeriesWriter interface {
	// Save replaces the stored series for its symbol
	Save(ctx context.Context, series *models.InstrumentSeries) error
}

// SeriesBackend is a store that can be read and written
type SeriesBackend interface {
	SeriesStore
	SeriesWriter

	// Close releases the backend's resources
	Close() error
}

// SeriesCache stores encoded series by key
type SeriesCache interface {
	// Get returns ErrCacheMiss when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// FileName maps a symbol to a file-system safe base name
func FileName(symbol string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return r.Replace(strings.TrimSpace(symbol))
}
