package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/storage"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Layout holds the raw data directories
type Layout struct {
	PricesDir string
	SplitsDir string
	SharesDir string
}

// LayoutFromConfig returns the raw layout of the data configuration
func LayoutFromConfig(cfg config.DataConfig) Layout {
	return Layout{
		PricesDir: cfg.PricesDir(),
		SplitsDir: cfg.SplitsDir(),
		SharesDir: cfg.SharesDir(),
	}
}

// PricesPath returns the raw price file of a symbol
func (l Layout) PricesPath(symbol string) string {
	return filepath.Join(l.PricesDir, storage.FileName(symbol)+".csv")
}

// SplitsPath returns the raw split file of a symbol
func (l Layout) SplitsPath(symbol string) string {
	return filepath.Join(l.SplitsDir, storage.FileName(symbol)+".csv")
}

// SharesPath returns the share count file of a symbol
func (l Layout) SharesPath(symbol string) string {
	return filepath.Join(l.SharesDir, storage.FileName(symbol)+".txt")
}

func (l Layout) ensure() error {
	for _, dir := range []string{l.PricesDir, l.SplitsDir, l.SharesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DownloadStats summarises a download run
type DownloadStats struct {
	Downloaded int64 // files written
	Skipped    int64 // files already present
	NotListed  int64 // symbols without a share count
	Failed     int64 // files that could not be fetched
	Duration   time.Duration
}

// Downloader fetches raw files for a universe, skipping files already present
type Downloader struct {
	provider    Provider
	layout      Layout
	workerCount int
}

// NewDownloader creates a new downloader
func NewDownloader(provider Provider, layout Layout, workerCount int) *Downloader {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Downloader{provider: provider, layout: layout, workerCount: workerCount}
}

// Run downloads prices, splits and shares for every symbol. Failures are
// logged and counted; only context cancellation stops the run.
func (d *Downloader) Run(ctx context.Context, symbols []string) (*DownloadStats, error) {
	if err := d.layout.ensure(); err != nil {
		return nil, err
	}

	start := time.Now()
	stats := &DownloadStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workerCount)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.downloadSymbol(gctx, symbol, stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("download interrupted: %w", err)
	}

	stats.Duration = time.Since(start)
	logger.Info("Download completed",
		logger.String("provider", d.provider.GetName()),
		logger.Int("symbols", len(symbols)),
		logger.Int("downloaded", int(stats.Downloaded)),
		logger.Int("skipped", int(stats.Skipped)),
		logger.Int("not_listed", int(stats.NotListed)),
		logger.Int("failed", int(stats.Failed)),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (d *Downloader) downloadSymbol(ctx context.Context, symbol string, stats *DownloadStats) {
	d.fetchFile(ctx, symbol, "shares", d.layout.SharesPath(symbol), stats, func() ([]byte, error) {
		n, err := d.provider.Shares(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
	})
	d.fetchFile(ctx, symbol, "splits", d.layout.SplitsPath(symbol), stats, func() ([]byte, error) {
		return d.provider.Splits(ctx, symbol)
	})
	d.fetchFile(ctx, symbol, "prices", d.layout.PricesPath(symbol), stats, func() ([]byte, error) {
		return d.provider.Prices(ctx, symbol)
	})
}

func (d *Downloader) fetchFile(ctx context.Context, symbol, kind, path string, stats *DownloadStats, fetch func() ([]byte, error)) {
	if _, err := os.Stat(path); err == nil {
		atomic.AddInt64(&stats.Skipped, 1)
		return
	}
	if ctx.Err() != nil {
		return
	}

	body, err := fetch()
	if errors.Is(err, ErrNotListed) {
		atomic.AddInt64(&stats.NotListed, 1)
		logger.Debug("Symbol not listed", logger.String("symbol", symbol), logger.String("kind", kind))
		return
	}
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		logger.Error("Failed to download",
			logger.String("symbol", symbol),
			logger.String("kind", kind),
			logger.ErrorField(err),
		)
		return
	}

	if err := writeFileAtomic(path, body); err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		logger.Error("Failed to save download",
			logger.String("symbol", symbol),
			logger.String("path", path),
			logger.ErrorField(err),
		)
		return
	}
	atomic.AddInt64(&stats.Downloaded, 1)
	logger.Debug("Downloaded", logger.String("symbol", symbol), logger.String("kind", kind))
}

func writeFileAtomic(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
