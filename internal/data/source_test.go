package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/storage"
)

func TestSourceFactory(t *testing.T) {
	factory := NewSourceFactory()
	assert.Equal(t, []string{"massive", "mock"}, factory.ListSources())

	src, err := factory.CreateSource("mock", SourceConfig{Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, "mock", src.Name())

	_, err = factory.CreateSource("etrade", SourceConfig{})
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = factory.CreateSource("massive", SourceConfig{BaseURL: "http://localhost"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	err = factory.RegisterSource("mock", NewMockSource)
	assert.ErrorIs(t, err, ErrSourceRegistered)
}

func TestNewSourceConfig(t *testing.T) {
	cache := storage.NewMockRedisClient()
	cfg := NewSourceConfig(config.MarketDataConfig{
		APIKey:          "key",
		BaseURL:         "https://api.massive.com",
		MockSeed:        42,
		MarketCacheTTL:  8 * time.Second,
		OptionsCacheTTL: 30 * time.Second,
		IVCacheTTL:      time.Minute,
		RequestTimeout:  5 * time.Second,
	}, cache)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 8*time.Second, cfg.MarketCacheTTL)
	assert.Equal(t, time.Minute, cfg.IVCacheTTL)
	assert.Same(t, cache, cfg.Cache)
}

func TestMockSource_MarketSeries(t *testing.T) {
	src := newMockSource(7)
	ctx := context.Background()

	series, err := src.MarketSeries(ctx, "SPY", 50)
	require.NoError(t, err)
	require.Len(t, series, 50)

	assert.GreaterOrEqual(t, series[0].Price, 100.0)
	assert.Less(t, series[0].Price, 150.01)
	for i, obs := range series {
		assert.Equal(t, "SPY", obs.Symbol)
		assert.Greater(t, obs.Price, 0.0)
		assert.Equal(t, obs.Price, roundCents(obs.Price), "prices are rounded to cents")
		assert.GreaterOrEqual(t, obs.Volume, int64(1_000_000))
		assert.Less(t, obs.Volume, int64(3_000_000))
		if i > 0 {
			assert.Equal(t, time.Minute, obs.Timestamp.Sub(series[i-1].Timestamp))
		}
	}

	_, err = src.MarketSeries(ctx, "", 10)
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestMockSource_SeedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a := newMockSource(99)
	b := newMockSource(99)
	fixed := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }
	b.now = func() time.Time { return fixed }

	sa, err := a.MarketSeries(ctx, "QQQ", 20)
	require.NoError(t, err)
	sb, err := b.MarketSeries(ctx, "QQQ", 20)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	ia, _ := a.HistoricalIV(ctx, "QQQ", 30)
	ib, _ := b.HistoricalIV(ctx, "QQQ", 30)
	assert.Equal(t, ia, ib)
}

func TestMockSource_OptionsSnapshot(t *testing.T) {
	src := newMockSource(3)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	snapshot, err := src.OptionsSnapshot(context.Background(), "IWM", 212.40)
	require.NoError(t, err)
	require.NoError(t, snapshot.Validate())

	require.Len(t, snapshot.Strikes, 16)
	assert.Equal(t, 185.0, snapshot.Strikes[0].Strike)
	assert.Equal(t, 260.0, snapshot.Strikes[15].Strike)
	for i := 1; i < len(snapshot.Strikes); i++ {
		assert.Equal(t, 5.0, snapshot.Strikes[i].Strike-snapshot.Strikes[i-1].Strike)
	}

	// 210 is within $2.50 of 212.40 and in the money: bid 5-m*5, ask 5.5-m*5
	m := (212.40 - 210) / 212.40
	mid := ((5 - m*5) + (5.5 - m*5)) / 2
	assert.InDelta(t, mid*0.95, snapshot.Bid, 1e-9)
	assert.InDelta(t, mid*1.05, snapshot.Ask, 1e-9)
	assert.InDelta(t, mid*0.1, snapshot.Spread, 1e-9)

	assert.Equal(t, "2025-03-31", snapshot.Expiration)
	assert.GreaterOrEqual(t, snapshot.IV, 25.0)
	assert.Less(t, snapshot.IV, 55.0)
	assert.GreaterOrEqual(t, snapshot.OpenInterest, int64(5000))
}

func TestSyntheticStrikes_Moneyness(t *testing.T) {
	src := newMockSource(5)
	strikes := syntheticStrikes(src.rng, 100)

	for _, s := range strikes {
		if s.Strike > 100 {
			assert.Equal(t, sidePricesBid(true, s.Strike), s.CallBid)
			assert.GreaterOrEqual(t, s.CallVolume, int64(50))
			assert.Less(t, s.CallVolume, int64(250))
			assert.GreaterOrEqual(t, s.PutVolume, int64(100))
		} else {
			assert.Equal(t, sidePricesBid(false, s.Strike), s.CallBid)
			assert.GreaterOrEqual(t, s.CallOpenInterest, int64(200))
		}
		assert.GreaterOrEqual(t, s.CallAsk, s.CallBid)
		assert.GreaterOrEqual(t, s.PutAsk, s.PutBid)
	}
}

func sidePricesBid(otm bool, strike float64) float64 {
	m := strike - 100
	if m < 0 {
		m = -m
	}
	bid, _ := sidePrices(otm, m/100)
	return bid
}

func TestMockSource_HistoricalIV(t *testing.T) {
	src := newMockSource(11)

	ivs, err := src.HistoricalIV(context.Background(), "DIA", 252)
	require.NoError(t, err)
	require.Len(t, ivs, 252)
	for _, iv := range ivs {
		assert.GreaterOrEqual(t, iv, 25.0)
		assert.LessOrEqual(t, iv, 35.0)
	}

	ivs, err = src.HistoricalIV(context.Background(), "DIA", 0)
	require.NoError(t, err)
	assert.Len(t, ivs, 252, "non-positive days falls back to one trading year")
}

func TestMockSource_CanceledContext(t *testing.T) {
	src := newMockSource(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.MarketSeries(ctx, "SPY", 10)
	assert.ErrorIs(t, err, context.Canceled)
}
