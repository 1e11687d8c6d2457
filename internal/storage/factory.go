package storage

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
)

// Backends holds the configured series backend and the read path in front
// of it, which goes through Redis when caching is enabled
type Backends struct {
	Backend SeriesBackend
	Reader  SeriesStore

	cache *RedisSeriesCache
}

// Open connects the series backend selected by the data configuration
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	var backend SeriesBackend
	switch cfg.Data.StoreType {
	case "", "csv":
		backend = NewCSVStore(cfg.Data.CleanDir)
	case "postgres":
		pg, err := NewPostgresStore(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		backend = pg
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Data.StoreType)
	}

	b := &Backends{Backend: backend, Reader: backend}
	if cfg.Data.CacheEnabled {
		cache, err := NewRedisSeriesCache(cfg.Redis)
		if err != nil {
			backend.Close()
			return nil, err
		}
		b.cache = cache
		b.Reader = NewCachedStore(backend, cache, cfg.Data.CacheTTL)
	}

	logger.Info("Opened series store",
		logger.String("type", cfg.Data.StoreType),
		logger.Bool("cache", cfg.Data.CacheEnabled),
	)
	return b, nil
}

// Close releases the backend and the cache
func (b *Backends) Close() error {
	var firstErr error
	if b.cache != nil {
		firstErr = b.cache.Close()
	}
	if err := b.Backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
