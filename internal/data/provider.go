package data

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
)

var (
	// ErrRequestFailed is returned when a request fails after all retries
	ErrRequestFailed = errors.New("request failed")
	// ErrNotListed is returned when the provider has no share count for a symbol
	ErrNotListed = errors.New("symbol not listed")
	// ErrInvalidSymbol is returned when an invalid symbol is provided
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// Provider defines the interface for historical market data providers
type Provider interface {
	// Prices returns the daily price history as CSV
	Prices(ctx context.Context, symbol string) ([]byte, error)

	// Splits returns the split events as CSV
	Splits(ctx context.Context, symbol string) ([]byte, error)

	// Shares returns the number of shares outstanding
	Shares(ctx context.Context, symbol string) (float64, error)

	// GetName returns the name/type of the provider (e.g., "yahoo", "mock")
	GetName() string
}

// ProviderFactory creates provider instances
type ProviderFactory interface {
	// CreateProvider creates a new provider instance based on the provider type
	CreateProvider(providerType string, config ProviderConfig) (Provider, error)

	// RegisterProvider registers a custom provider factory function
	RegisterProvider(providerType string, factoryFunc func(ProviderConfig) (Provider, error)) error

	// ListProviders returns a list of available provider types
	ListProviders() []string
}

// ProviderConfig holds configuration for a provider
type ProviderConfig struct {
	BaseURL  string // price and split downloads
	StatsURL string // statistics pages
	Headers  map[string]string

	// Requested history, unix seconds
	PeriodStart int64
	PeriodEnd   int64

	// Courtesy and resilience settings
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	Timeout           time.Duration
}

// ProviderConfigFromConfig maps the download configuration to a ProviderConfig
func ProviderConfigFromConfig(cfg config.DownloadConfig) ProviderConfig {
	return ProviderConfig{
		BaseURL:           cfg.BaseURL,
		StatsURL:          cfg.StatsURL,
		Headers:           cfg.Headers,
		PeriodStart:       cfg.PeriodStart,
		PeriodEnd:         cfg.PeriodEnd,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		MaxRetryDelay:     cfg.MaxRetryDelay,
		Timeout:           cfg.Timeout,
	}
}

// DefaultProviderFactory is the default implementation of ProviderFactory
type DefaultProviderFactory struct {
	factories map[string]func(ProviderConfig) (Provider, error)
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory() *DefaultProviderFactory {
	factory := &DefaultProviderFactory{
		factories: make(map[string]func(ProviderConfig) (Provider, error)),
	}

	// Register built-in providers
	factory.RegisterProvider("yahoo", func(c ProviderConfig) (Provider, error) { return NewYahooProvider(c) })
	factory.RegisterProvider("mock", func(ProviderConfig) (Provider, error) { return NewMockProvider(), nil })

	return factory
}

// CreateProvider creates a new provider instance
func (f *DefaultProviderFactory) CreateProvider(providerType string, config ProviderConfig) (Provider, error) {
	factoryFunc, exists := f.factories[providerType]
	if !exists {
		return nil, errors.New("unknown provider type: " + providerType)
	}

	return factoryFunc(config)
}

// RegisterProvider registers a custom provider factory function
func (f *DefaultProviderFactory) RegisterProvider(providerType string, factoryFunc func(ProviderConfig) (Provider, error)) error {
	if _, exists := f.factories[providerType]; exists {
		return errors.New("provider type already registered: " + providerType)
	}
	f.factories[providerType] = factoryFunc
	return nil
}

// ListProviders returns the registered provider types in name order
func (f *DefaultProviderFactory) ListProviders() []string {
	providers := make([]string, 0, len(f.factories))
	for providerType := range f.factories {
		providers = append(providers, providerType)
	}
	sort.Strings(providers)
	return providers
}
