package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/models"
)

// MemoryStore is an in-memory SeriesBackend for tests and dry runs
type MemoryStore struct {
	mu      sync.RWMutex
	series  map[string]*models.InstrumentSeries
	LoadErr map[string]error
	Loads   int
}

// NewMemoryStore creates a store holding copies of the given series
func NewMemoryStore(series ...*models.InstrumentSeries) *MemoryStore {
	m := &MemoryStore{
		series:  make(map[string]*models.InstrumentSeries),
		LoadErr: make(map[string]error),
	}
	for _, s := range series {
		m.series[s.Symbol] = s.Clone()
	}
	return m
}

// Load returns the stored series itself, not a copy, so tests can detect
// callers that modify what they load
func (m *MemoryStore) Load(ctx context.Context, symbol string) (*models.InstrumentSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads++

	if err := m.LoadErr[symbol]; err != nil {
		return nil, err
	}
	s, ok := m.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSeriesNotFound, symbol)
	}
	return s, nil
}

func (m *MemoryStore) Save(ctx context.Context, series *models.InstrumentSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[series.Symbol] = series.Clone()
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// MockSeriesCache is an in-memory SeriesCache
type MockSeriesCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	GetErr error
	SetErr error
}

func NewMockSeriesCache() *MockSeriesCache {
	return &MockSeriesCache{data: make(map[string][]byte)}
}

func (m *MockSeriesCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *MockSeriesCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Keys returns the number of cached entries
func (m *MockSeriesCache) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
