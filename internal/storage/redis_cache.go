package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/mohamedkhairy/stock-isolator/internal/models"
	"github.com/mohamedkhairy/stock-isolator/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheMiss is returned by SeriesCache implementations for absent keys
var ErrCacheMiss = errors.New("cache miss")

// RedisSeriesCache implements SeriesCache on top of Redis strings
type RedisSeriesCache struct {
	client *redis.Client
}

// NewRedisSeriesCache connects to Redis and verifies connectivity
func NewRedisSeriesCache(cfg config.RedisConfig) (*RedisSeriesCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return &RedisSeriesCache{client: rdb}, nil
}

// Get returns the cached bytes for key
func (r *RedisSeriesCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return b, nil
}

// Set stores value under key with a TTL
func (r *RedisSeriesCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisSeriesCache) Close() error {
	return r.client.Close()
}

// CachedStore is a read-through cache in front of another SeriesStore.
// Every Load decodes a fresh copy, so callers may modify what they get back
// without affecting other readers.
type CachedStore struct {
	inner  SeriesStore
	cache  SeriesCache
	ttl    time.Duration
	prefix string
}

// NewCachedStore wraps inner with cache
func NewCachedStore(inner SeriesStore, cache SeriesCache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		prefix: "series:",
	}
}

// Load returns the cached series or loads and caches it. Cache failures are
// logged and never fail the load.
func (c *CachedStore) Load(ctx context.Context, symbol string) (*models.InstrumentSeries, error) {
	key := c.prefix + symbol

	data, err := c.cache.Get(ctx, key)
	if err == nil {
		series, decodeErr := decodeSeries(data)
		if decodeErr == nil {
			seriesLoadTotal.WithLabelValues("cache", "found").Inc()
			return series, nil
		}
		logger.Warn("Discarding undecodable cache entry",
			logger.String("symbol", symbol),
			logger.ErrorField(decodeErr),
		)
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Series cache unavailable, reading through",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
	}

	series, err := c.inner.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}

	encoded, err := msgpack.Marshal(series)
	if err != nil {
		logger.Warn("Failed to encode series for cache",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		return series, nil
	}
	if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
		logger.Warn("Failed to cache series",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
	}

	return series, nil
}

func decodeSeries(data []byte) (*models.InstrumentSeries, error) {
	var series models.InstrumentSeries
	if err := msgpack.Unmarshal(data, &series); err != nil {
		return nil, err
	}
	// msgpack restores timestamps in the local zone
	for i := range series.Records {
		series.Records[i].Date = series.Records[i].Date.UTC()
	}
	return &series, nil
}
