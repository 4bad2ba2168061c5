package data

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// Inputs is a complete set of analysis inputs for one symbol, all taken from
// the same source
type Inputs struct {
	Symbol       string
	Series       []models.MarketObservation
	Snapshot     *models.OptionsSnapshot
	HistoricalIV []float64
	Source       string
}

// Current returns the most recent observation
func (in *Inputs) Current() models.MarketObservation {
	return in.Series[len(in.Series)-1]
}

// CollectorConfig holds collection sizes
type CollectorConfig struct {
	HistoryPoints int
	IVHistoryDays int
}

// Collector gathers analysis inputs from a primary source, switching the whole
// set to a fallback source when the primary fails
type Collector struct {
	primary  Source
	fallback Source
	config   CollectorConfig
}

// NewCollector creates a new collector. fallback may be nil.
func NewCollector(primary, fallback Source, config CollectorConfig) *Collector {
	if config.HistoryPoints < 1 {
		config.HistoryPoints = 50
	}
	if config.IVHistoryDays < 1 {
		config.IVHistoryDays = defaultIVHistoryDays
	}
	return &Collector{
		primary:  primary,
		fallback: fallback,
		config:   config,
	}
}

// Primary returns the primary source name
func (c *Collector) Primary() string {
	return c.primary.Name()
}

// Collect returns series, options snapshot and IV history for symbol
func (c *Collector) Collect(ctx context.Context, symbol string) (*Inputs, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	inputs, err := c.collectFrom(ctx, c.primary, symbol)
	if err == nil {
		return inputs, nil
	}
	if c.fallback == nil || c.fallback == c.primary || ctx.Err() != nil {
		return nil, err
	}

	logger.WithContext(ctx).Warn("Primary source failed, using fallback",
		logger.Symbol(symbol),
		logger.String("primary", c.primary.Name()),
		logger.String("fallback", c.fallback.Name()),
		logger.ErrorField(err),
	)
	logger.SourceFallbacks.WithLabelValues(c.primary.Name()).Inc()

	inputs, fbErr := c.collectFrom(ctx, c.fallback, symbol)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback source %s failed: %w (primary: %v)", c.fallback.Name(), fbErr, err)
	}
	return inputs, nil
}

// collectFrom fetches the series then the chain around its latest price,
// while the IV history is fetched concurrently
func (c *Collector) collectFrom(ctx context.Context, src Source, symbol string) (*Inputs, error) {
	inputs := &Inputs{Symbol: symbol, Source: src.Name()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		series, err := src.MarketSeries(gctx, symbol, c.config.HistoryPoints)
		if err != nil {
			return fmt.Errorf("%s market series: %w", src.Name(), err)
		}
		if err := models.ValidateSeries(series); err != nil {
			return fmt.Errorf("%s market series: %w", src.Name(), err)
		}

		price := series[len(series)-1].Price
		snapshot, err := src.OptionsSnapshot(gctx, symbol, price)
		if err != nil {
			return fmt.Errorf("%s options snapshot: %w", src.Name(), err)
		}
		if snapshot == nil {
			return fmt.Errorf("%s options snapshot: empty response", src.Name())
		}
		if err := snapshot.Validate(); err != nil {
			return fmt.Errorf("%s options snapshot: %w", src.Name(), err)
		}

		inputs.Series = series
		inputs.Snapshot = snapshot
		return nil
	})

	g.Go(func() error {
		ivs, err := src.HistoricalIV(gctx, symbol, c.config.IVHistoryDays)
		if err != nil {
			return fmt.Errorf("%s historical IV: %w", src.Name(), err)
		}
		inputs.HistoricalIV = ivs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// NewCollectorFromConfig creates the configured primary source and, when
// enabled and the primary is not already the mock, a mock fallback
func NewCollectorFromConfig(factory SourceFactory, cfg config.MarketDataConfig, cache storage.RedisClient) (*Collector, error) {
	srcCfg := NewSourceConfig(cfg, cache)

	primary, err := factory.CreateSource(cfg.Provider, srcCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", cfg.Provider, err)
	}

	var fallback Source
	if cfg.FallbackToMock && cfg.Provider != config.ProviderMock {
		fallback, err = factory.CreateSource(config.ProviderMock, srcCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create fallback source: %w", err)
		}
	}

	return NewCollector(primary, fallback, CollectorConfig{
		HistoryPoints: cfg.HistoryPoints,
		IVHistoryDays: cfg.IVHistoryDays,
	}), nil
}
