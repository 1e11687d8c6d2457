package data

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is an in-memory Provider for testing
type MockProvider struct {
	mu     sync.RWMutex
	prices map[string][]byte
	splits map[string][]byte
	shares map[string]float64
	errs   map[string]error
	calls  map[string]int
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		prices: make(map[string][]byte),
		splits: make(map[string][]byte),
		shares: make(map[string]float64),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetSymbol registers the data returned for a symbol
func (m *MockProvider) SetSymbol(symbol string, prices, splits string, shares float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = []byte(prices)
	m.splits[symbol] = []byte(splits)
	m.shares[symbol] = shares
}

// SetError makes every request for symbol fail with err
func (m *MockProvider) SetError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

// Calls returns how many requests were made for symbol
func (m *MockProvider) Calls(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[symbol]
}

func (m *MockProvider) lookup(symbol string) error {
	if symbol == "" {
		return ErrInvalidSymbol
	}
	m.calls[symbol]++
	return m.errs[symbol]
}

// Prices returns the registered price CSV
func (m *MockProvider) Prices(ctx context.Context, symbol string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.lookup(symbol); err != nil {
		return nil, err
	}
	body, ok := m.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no prices for %s", ErrRequestFailed, symbol)
	}
	return body, nil
}

// Splits returns the registered split CSV
func (m *MockProvider) Splits(ctx context.Context, symbol string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.lookup(symbol); err != nil {
		return nil, err
	}
	body, ok := m.splits[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no splits for %s", ErrRequestFailed, symbol)
	}
	return body, nil
}

// Shares returns the registered share count
func (m *MockProvider) Shares(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.lookup(symbol); err != nil {
		return 0, err
	}
	n, ok := m.shares[symbol]
	if !ok {
		return 0, ErrNotListed
	}
	return n, nil
}

// GetName returns the provider name
func (m *MockProvider) GetName() string {
	return "mock"
}
