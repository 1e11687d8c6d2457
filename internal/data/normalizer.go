package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/mohamedkhairy/stock-isolator/pkg/magnitude"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrIncompleteInput is returned when a raw file of a symbol is missing
	ErrIncompleteInput = errors.New("raw input incomplete")
	// ErrInvalidShares is returned when the share count file cannot be read
	ErrInvalidShares = errors.New("invalid share count")
)

// Derive fills the derived columns of every record: Market Cap from the open
// price and share count, Delta and DeltaPercent from open and close. A zero
// open price gives a DeltaPercent of 0. The input is not modified.
func Derive(series *models.InstrumentSeries, shares float64) *models.InstrumentSeries {
	out := series.Clone()
	for i := range out.Records {
		r := &out.Records[i]
		r.MarketCap = r.Open * shares
		r.Delta = r.Close - r.Open
		if r.Open == 0 {
			r.DeltaPercent = 0
		} else {
			r.DeltaPercent = r.Delta / r.Open * 100
		}
	}
	return out
}

// NormalizeStats summarises a derivation run
type NormalizeStats struct {
	Written  int64
	Skipped  int64 // raw files missing
	Failed   int64
	Duration time.Duration
}

// Normalizer turns raw downloads into processed series
type Normalizer struct {
	layout      Layout
	writer      storage.SeriesWriter
	workerCount int
}

// NewNormalizer creates a new normalizer writing through writer
func NewNormalizer(layout Layout, writer storage.SeriesWriter, workerCount int) *Normalizer {
	if workerCount <= 0 {
		workerCount = 24
	}
	return &Normalizer{layout: layout, writer: writer, workerCount: workerCount}
}

// Run derives every symbol that has complete raw input. A failure for one
// symbol is logged and does not stop the others.
func (n *Normalizer) Run(ctx context.Context, symbols []string) (*NormalizeStats, error) {
	start := time.Now()
	stats := &NormalizeStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workerCount)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := n.Normalize(gctx, symbol)
			switch {
			case err == nil:
				atomic.AddInt64(&stats.Written, 1)
			case errors.Is(err, ErrIncompleteInput):
				atomic.AddInt64(&stats.Skipped, 1)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				atomic.AddInt64(&stats.Failed, 1)
				logger.Error("Failed to clean data",
					logger.String("symbol", symbol),
					logger.ErrorField(err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("clean interrupted: %w", err)
	}

	stats.Duration = time.Since(start)
	logger.Info("Clean completed",
		logger.Int("symbols", len(symbols)),
		logger.Int("written", int(stats.Written)),
		logger.Int("skipped", int(stats.Skipped)),
		logger.Int("failed", int(stats.Failed)),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// Normalize derives and saves one symbol
func (n *Normalizer) Normalize(ctx context.Context, symbol string) error {
	pricesPath := n.layout.PricesPath(symbol)
	for _, path := range []string{pricesPath, n.layout.SplitsPath(symbol), n.layout.SharesPath(symbol)} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrIncompleteInput, path)
		}
	}

	shares, err := ReadShares(n.layout.SharesPath(symbol))
	if err != nil {
		return err
	}

	f, err := os.Open(pricesPath)
	if err != nil {
		return fmt.Errorf("failed to open prices: %w", err)
	}
	defer f.Close()

	raw, err := storage.ReadSeriesCSV(symbol, f)
	if err != nil {
		return fmt.Errorf("failed to read prices: %w", err)
	}

	if err := n.writer.Save(ctx, Derive(raw, shares)); err != nil {
		return fmt.Errorf("failed to save series: %w", err)
	}
	logger.Debug("Cleaned data", logger.String("symbol", symbol), logger.Int("records", raw.Len()))
	return nil
}

// ReadShares reads a share count file. Plain numbers and magnitude strings
// are accepted.
func ReadShares(path string) (float64, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read shares: %w", err)
	}
	line := strings.TrimSpace(strings.SplitN(string(body), "\n", 2)[0])
	shares, err := magnitude.Parse(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidShares, path, err)
	}
	return shares, nil
}
