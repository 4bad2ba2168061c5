package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradion/volatility-signals/internal/storage"
)

const sampleChainJSON = `{
  "status": "OK",
  "results": [
    {
      "details": {"strike_price": 505, "contract_type": "call", "expiration_date": "2025-06-20"},
      "last_quote": {"bid": 2.10, "ask": 2.20},
      "last_trade": {"price": 2.15, "size": 40},
      "day": {"volume": 1200},
      "open_interest": 3000,
      "implied_volatility": 0.24,
      "underlying_asset": {"ticker": "SPY", "last_trade": {"price": 503.75}, "session": {"close": 503.10, "volume": 5400000}}
    },
    {
      "details": {"strike_price": 505, "contract_type": "put", "expiration_date": "2025-06-20"},
      "last_quote": {"bid": 3.00, "ask": 3.20},
      "day": {"volume": 800},
      "open_interest": 2500,
      "implied_volatility": 0.26
    },
    {
      "details": {"strike_price": 500, "contract_type": "call", "expiration_date": "2025-06-20"},
      "last_trade": {"price": 4.80},
      "day": {"volume": 90},
      "open_interest": 400,
      "implied_volatility": 0
    },
    {
      "ticker": "O:SPY250620C00510000",
      "details": {"strike_price": 510, "expiration_date": "2025-06-20"},
      "last_quote": {"bid": "0.95", "ask": "1.05"},
      "last_trade": {"size": 15},
      "open_interest": 150,
      "implied_volatility": 0.22
    },
    {
      "details": {"contract_type": "call", "expiration_date": "2025-06-20"}
    }
  ]
}`

type massiveServer struct {
	t         *testing.T
	unified   string
	unifiedOK bool
	chain     string
	hits      map[string]*int32
}

func newMassiveServer(t *testing.T) *massiveServer {
	return &massiveServer{
		t:     t,
		chain: sampleChainJSON,
		hits:  map[string]*int32{"unified": new(int32), "options": new(int32)},
	}
}

func (s *massiveServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(s.t, "Bearer test-key", r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/v3/snapshot":
		atomic.AddInt32(s.hits["unified"], 1)
		assert.Equal(s.t, "stocks", r.URL.Query().Get("type"))
		if !s.unifiedOK {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"NOT_AUTHORIZED"}`))
			return
		}
		_, _ = w.Write([]byte(s.unified))
	case strings.HasPrefix(r.URL.Path, "/v3/snapshot/options/"):
		atomic.AddInt32(s.hits["options"], 1)
		_, _ = w.Write([]byte(s.chain))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestMassive(t *testing.T, server *httptest.Server, cache storage.RedisClient) *MassiveSource {
	src, err := NewMassiveSource(SourceConfig{
		APIKey:          "test-key",
		BaseURL:         server.URL + "/",
		Seed:            1,
		MarketCacheTTL:  8 * time.Second,
		OptionsCacheTTL: 30 * time.Second,
		IVCacheTTL:      time.Minute,
		Cache:           cache,
		HTTPClient:      server.Client(),
	})
	require.NoError(t, err)
	return src.(*MassiveSource)
}

func TestMassiveSource_MarketSeriesFromUnifiedSnapshot(t *testing.T) {
	handler := newMassiveServer(t)
	handler.unifiedOK = true
	handler.unified = `{"status":"OK","results":[{"ticker":"SPY","type":"stocks","last_trade":{"price":501.25},"session":{"close":500.00,"volume":7200000}}]}`
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	series, err := src.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 501.25, series[0].Price)
	assert.Equal(t, int64(7200000), series[0].Volume)
	assert.Equal(t, int32(0), atomic.LoadInt32(handler.hits["options"]))
}

func TestMassiveSource_MarketSeriesFallsBackToUnderlying(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	series, err := src.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 503.75, series[0].Price)
	assert.Equal(t, int64(5400000), series[0].Volume)
}

func TestMassiveSource_SeriesAccumulates(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	clock := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	src.now = func() time.Time {
		clock = clock.Add(30 * time.Second)
		return clock
	}

	for i := 0; i < 5; i++ {
		_, err := src.MarketSeries(context.Background(), "SPY", 3)
		require.NoError(t, err)
	}

	series, err := src.MarketSeries(context.Background(), "SPY", 3)
	require.NoError(t, err)
	assert.Len(t, series, 3)
	assert.True(t, series[0].Timestamp.Before(series[2].Timestamp))

	all, err := src.MarketSeries(context.Background(), "SPY", 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestMassiveSource_SeriesSharedThroughCache(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	cache := storage.NewMockRedisClient()
	clock := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	tick := func() time.Time {
		clock = clock.Add(30 * time.Second)
		return clock
	}

	scannerSource := newTestMassive(t, server, cache)
	scannerSource.now = tick
	for i := 0; i < 25; i++ {
		_, err := scannerSource.MarketSeries(context.Background(), "SPY", 50)
		require.NoError(t, err)
	}

	// A second process starts with an empty local buffer
	refreshSource := newTestMassive(t, server, cache)
	refreshSource.now = tick
	series, err := refreshSource.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	assert.Len(t, series, 26)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i].Timestamp.After(series[i-1].Timestamp))
	}

	limited, err := scannerSource.MarketSeries(context.Background(), "SPY", 10)
	require.NoError(t, err)
	assert.Len(t, limited, 10)
	assert.Equal(t, seriesTTL, cache.TTLs[seriesKey("SPY")])
}

func TestMassiveSource_SharedSeriesSkipsStaleQuote(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	cache := storage.NewMockRedisClient()
	fixed := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	first := newTestMassive(t, server, cache)
	first.now = func() time.Time { return fixed }
	second := newTestMassive(t, server, cache)
	second.now = func() time.Time { return fixed }

	_, err := first.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	series, err := second.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	assert.Len(t, series, 1)
	assert.Len(t, cache.Lists[seriesKey("SPY")], 1)
}

func TestMassiveSource_SharedSeriesFallsBackToLocal(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	cache := storage.NewMockRedisClient()
	cache.GetErr = errors.New("redis down")

	src := newTestMassive(t, server, cache)
	series, err := src.MarketSeries(context.Background(), "SPY", 50)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 503.75, series[0].Price)
}

func TestMassiveSource_NoUnderlying(t *testing.T) {
	handler := newMassiveServer(t)
	handler.chain = `{"status":"OK","results":[]}`
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	_, err := src.MarketSeries(context.Background(), "XYZ", 10)
	assert.ErrorIs(t, err, ErrNoMarketData)
}

func TestMassiveSource_OptionsSnapshot(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	snapshot, err := src.OptionsSnapshot(context.Background(), "SPY", 503.75)
	require.NoError(t, err)

	require.Len(t, snapshot.Strikes, 3)
	assert.Equal(t, []float64{500, 505, 510}, []float64{
		snapshot.Strikes[0].Strike, snapshot.Strikes[1].Strike, snapshot.Strikes[2].Strike,
	})

	s500 := snapshot.Strikes[0]
	assert.Equal(t, 4.80, s500.CallBid, "bid falls back to last trade price")
	assert.Equal(t, 4.80, s500.CallAsk)
	assert.Equal(t, int64(90), s500.CallVolume, "volume falls back to day volume")

	s505 := snapshot.Strikes[1]
	assert.Equal(t, 2.10, s505.CallBid)
	assert.Equal(t, 2.20, s505.CallAsk)
	assert.Equal(t, int64(40), s505.CallVolume, "trade size wins over day volume")
	assert.Equal(t, int64(3000), s505.CallOpenInterest)
	assert.Equal(t, 3.00, s505.PutBid)
	assert.Equal(t, int64(800), s505.PutVolume)

	s510 := snapshot.Strikes[2]
	assert.Equal(t, 0.95, s510.CallBid, "contract type inferred from ticker")
	assert.Equal(t, int64(15), s510.CallVolume)

	assert.Equal(t, "2025-06-20", snapshot.Expiration)
	assert.InDelta(t, 24.0, snapshot.IV, 1e-9, "average of positive IVs, in percent")
	assert.Equal(t, int64(90+40+800+15), snapshot.Volume)
	assert.Equal(t, int64(400+3000+2500+150), snapshot.OpenInterest)

	// 505 is the first strike within $2.50 of 503.75
	assert.InDelta(t, 2.15*0.95, snapshot.Bid, 1e-9)
	assert.InDelta(t, 2.15*1.05, snapshot.Ask, 1e-9)
	assert.InDelta(t, 0.215, snapshot.Spread, 1e-9)
}

func TestMassiveSource_CrossedQuoteUsesLastTrade(t *testing.T) {
	handler := newMassiveServer(t)
	handler.chain = `{"status":"OK","results":[
	  {"details": {"strike_price": 505, "contract_type": "call", "expiration_date": "2025-06-20"},
	   "last_quote": {"bid": 2.40, "ask": 2.05}, "last_trade": {"price": 2.20}, "implied_volatility": 0.24},
	  {"details": {"strike_price": 505, "contract_type": "put", "expiration_date": "2025-06-20"},
	   "last_quote": {"bid": 3.10, "ask": 2.90}}
	]}`
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	snapshot, err := src.OptionsSnapshot(context.Background(), "SPY", 505)
	require.NoError(t, err)
	require.Len(t, snapshot.Strikes, 1)

	strike := snapshot.Strikes[0]
	assert.Equal(t, 2.20, strike.CallBid)
	assert.Equal(t, 2.20, strike.CallAsk)
	assert.Zero(t, strike.PutBid, "no trade to fall back to")
	assert.Zero(t, strike.PutAsk)
	assert.NoError(t, snapshot.Validate())
}

func TestMassiveSource_EmptyChainUsesDefaults(t *testing.T) {
	handler := newMassiveServer(t)
	handler.chain = `{"status":"OK","results":[]}`
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	snapshot, err := src.OptionsSnapshot(context.Background(), "SPY", 100)
	require.NoError(t, err)

	assert.Len(t, snapshot.Strikes, 16)
	assert.Equal(t, 30.0, snapshot.IV)
	assert.Equal(t, 2.5, snapshot.Bid)
	assert.Equal(t, 2.75, snapshot.Ask)
	assert.Equal(t, int64(0), snapshot.Volume)
}

func TestMassiveSource_HistoricalIV(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	src := newTestMassive(t, server, nil)
	ivs, err := src.HistoricalIV(context.Background(), "SPY", 252)
	require.NoError(t, err)
	require.Len(t, ivs, 3)
	assert.InDelta(t, 24.0, ivs[0], 1e-9)
	assert.InDelta(t, 26.0, ivs[1], 1e-9)
	assert.InDelta(t, 22.0, ivs[2], 1e-9)

	ivs, err = src.HistoricalIV(context.Background(), "SPY", 2)
	require.NoError(t, err)
	assert.Len(t, ivs, 2)
}

func TestMassiveSource_CachesByKind(t *testing.T) {
	handler := newMassiveServer(t)
	server := httptest.NewServer(handler)
	defer server.Close()

	cache := storage.NewMockRedisClient()
	src := newTestMassive(t, server, cache)
	ctx := context.Background()

	first, err := src.OptionsSnapshot(ctx, "SPY", 503.75)
	require.NoError(t, err)
	second, err := src.OptionsSnapshot(ctx, "SPY", 503.75)
	require.NoError(t, err)
	assert.Equal(t, first.Strikes, second.Strikes)
	assert.Equal(t, int32(1), atomic.LoadInt32(handler.hits["options"]), "second call served from cache")

	_, err = src.HistoricalIV(ctx, "SPY", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(handler.hits["options"]), "IV uses its own cache entry")

	var ttlSeen []time.Duration
	for key, ttl := range cache.TTLs {
		if strings.HasPrefix(key, massiveCachePrefix) {
			ttlSeen = append(ttlSeen, ttl)
		}
	}
	assert.ElementsMatch(t, []time.Duration{30 * time.Second, time.Minute}, ttlSeen)
}

func TestMassiveSource_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	src := newTestMassive(t, server, nil)
	_, err := src.OptionsSnapshot(context.Background(), "SPY", 500)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
}

func TestContractTypeFromTicker(t *testing.T) {
	assert.Equal(t, "call", contractTypeFromTicker("O:SPY250620C00510000"))
	assert.Equal(t, "put", contractTypeFromTicker("O:SPY250620P00510000"))
	assert.Equal(t, "", contractTypeFromTicker("SPY"))
}
