package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
)

var (
	// ErrUnknownSource is returned when no factory is registered for a source name
	ErrUnknownSource = errors.New("unknown market data source")
	// ErrSourceRegistered is returned when registering a name twice
	ErrSourceRegistered = errors.New("market data source already registered")
	// ErrInvalidSymbol is returned when an empty symbol is requested
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNoMarketData is returned when a source has no quote for a symbol
	ErrNoMarketData = errors.New("no market data available")
)

// Source supplies the three inputs an analysis needs for one symbol
type Source interface {
	// Name returns the source name (e.g., "mock", "massive")
	Name() string

	// MarketSeries returns up to points observations ordered oldest to newest
	MarketSeries(ctx context.Context, symbol string, points int) ([]models.MarketObservation, error)

	// OptionsSnapshot returns the options chain around the underlying price
	OptionsSnapshot(ctx context.Context, symbol string, underlying float64) (*models.OptionsSnapshot, error)

	// HistoricalIV returns implied volatility readings in percent
	HistoricalIV(ctx context.Context, symbol string, days int) ([]float64, error)
}

// SourceConfig holds configuration for a source
type SourceConfig struct {
	APIKey         string
	BaseURL        string
	Seed           int64
	RequestTimeout time.Duration

	// Response cache TTLs per call kind
	MarketCacheTTL  time.Duration
	OptionsCacheTTL time.Duration
	IVCacheTTL      time.Duration

	// Cache is optional; vendor responses are not cached when nil
	Cache      storage.RedisClient
	HTTPClient *http.Client
}

// NewSourceConfig builds a SourceConfig from the market data configuration
func NewSourceConfig(cfg config.MarketDataConfig, cache storage.RedisClient) SourceConfig {
	return SourceConfig{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Seed:            cfg.MockSeed,
		RequestTimeout:  cfg.RequestTimeout,
		MarketCacheTTL:  cfg.MarketCacheTTL,
		OptionsCacheTTL: cfg.OptionsCacheTTL,
		IVCacheTTL:      cfg.IVCacheTTL,
		Cache:           cache,
	}
}

// SourceFactory creates source instances
type SourceFactory interface {
	// CreateSource creates a new source instance by name
	CreateSource(name string, cfg SourceConfig) (Source, error)

	// RegisterSource registers a source factory function
	RegisterSource(name string, factoryFunc func(SourceConfig) (Source, error)) error

	// ListSources returns the registered source names in sorted order
	ListSources() []string
}

// DefaultSourceFactory is the default implementation of SourceFactory
type DefaultSourceFactory struct {
	factories map[string]func(SourceConfig) (Source, error)
}

// NewSourceFactory creates a factory with the built-in sources registered
func NewSourceFactory() *DefaultSourceFactory {
	factory := &DefaultSourceFactory{
		factories: make(map[string]func(SourceConfig) (Source, error)),
	}

	_ = factory.RegisterSource(config.ProviderMock, NewMockSource)
	_ = factory.RegisterSource(config.ProviderMassive, NewMassiveSource)

	return factory
}

// CreateSource creates a new source instance
func (f *DefaultSourceFactory) CreateSource(name string, cfg SourceConfig) (Source, error) {
	factoryFunc, exists := f.factories[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	return factoryFunc(cfg)
}

// RegisterSource registers a source factory function
func (f *DefaultSourceFactory) RegisterSource(name string, factoryFunc func(SourceConfig) (Source, error)) error {
	if _, exists := f.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrSourceRegistered, name)
	}
	f.factories[name] = factoryFunc
	return nil
}

// ListSources returns the registered source names
func (f *DefaultSourceFactory) ListSources() []string {
	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
