package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

const (
	massiveCachePrefix = "massive:"
	maxSeriesBuffer    = 500
	maxErrorBody       = 512

	// seriesTTL keeps a symbol's shared series across a quiet weekend
	seriesTTL = 72 * time.Hour
)

// Call kinds, used for cache TTL selection and metrics labels
const (
	kindMarket  = "market"
	kindOptions = "options"
	kindIV      = "iv"
)

var (
	// ErrMissingAPIKey is returned when the Massive source has no API key
	ErrMissingAPIKey = errors.New("massive API key is not configured")
)

// APIError is a non-2xx response from the Massive REST API
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("massive API error %d at %s: %s", e.StatusCode, e.URL, e.Body)
}

// MassiveSource reads quotes and option chains from the Massive REST API.
// Each quote is appended to a rolling per-symbol series. With a cache the
// series lives in Redis and is shared by every process using that cache;
// the in-memory buffer serves when there is no cache or it is unreachable.
type MassiveSource struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	cache   storage.RedisClient
	ttls    map[string]time.Duration
	now     func() time.Time

	mu     sync.Mutex
	series map[string][]models.MarketObservation
	rng    *rand.Rand
}

// NewMassiveSource creates a new Massive source
func NewMassiveSource(cfg SourceConfig) (Source, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("massive base URL is not configured")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &MassiveSource{
		name:    "massive",
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		cache:   cfg.Cache,
		ttls: map[string]time.Duration{
			kindMarket:  cfg.MarketCacheTTL,
			kindOptions: cfg.OptionsCacheTTL,
			kindIV:      cfg.IVCacheTTL,
		},
		now:    time.Now,
		series: make(map[string][]models.MarketObservation),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Name returns the source name
func (m *MassiveSource) Name() string {
	return m.name
}

// MarketSeries fetches the latest quote, appends it to the symbol's rolling
// series and returns the most recent points observations
func (m *MassiveSource) MarketSeries(ctx context.Context, symbol string, points int) ([]models.MarketObservation, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	quote, err := m.latestQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	local := m.appendLocal(symbol, quote, points)
	if m.cache == nil {
		return local, nil
	}

	shared, err := m.appendShared(ctx, symbol, quote, points)
	if err != nil {
		logger.Warn("Shared series unavailable, using local buffer",
			logger.Symbol(symbol),
			logger.ErrorField(err),
		)
		return local, nil
	}
	return shared, nil
}

func (m *MassiveSource) appendLocal(symbol string, quote models.MarketObservation, points int) []models.MarketObservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := m.series[symbol]
	if n := len(buf); n == 0 || quote.Timestamp.After(buf[n-1].Timestamp) {
		buf = append(buf, quote)
	}
	if len(buf) > maxSeriesBuffer {
		buf = buf[len(buf)-maxSeriesBuffer:]
	}
	m.series[symbol] = buf

	if points < 1 || points > len(buf) {
		points = len(buf)
	}
	out := make([]models.MarketObservation, points)
	copy(out, buf[len(buf)-points:])
	return out
}

// appendShared pushes the quote onto the symbol's Redis list unless the
// list already holds a point at or after its timestamp, then reads back
// the newest points entries
func (m *MassiveSource) appendShared(ctx context.Context, symbol string, quote models.MarketObservation, points int) ([]models.MarketObservation, error) {
	key := seriesKey(symbol)

	tail, err := m.cache.ListRange(ctx, key, -1, -1)
	if err != nil {
		return nil, fmt.Errorf("read series tail: %w", err)
	}
	var last models.MarketObservation
	if len(tail) == 0 || json.Unmarshal([]byte(tail[0]), &last) != nil || quote.Timestamp.After(last.Timestamp) {
		if err := m.cache.AppendToList(ctx, key, quote, maxSeriesBuffer, seriesTTL); err != nil {
			return nil, fmt.Errorf("append series: %w", err)
		}
	}

	if points < 1 || points > maxSeriesBuffer {
		points = maxSeriesBuffer
	}
	raw, err := m.cache.ListRange(ctx, key, -int64(points), -1)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}

	// Writers race between the tail read and the push; drop entries that
	// would break the oldest to newest order
	out := make([]models.MarketObservation, 0, len(raw))
	for _, entry := range raw {
		var obs models.MarketObservation
		if err := json.Unmarshal([]byte(entry), &obs); err != nil {
			continue
		}
		if n := len(out); n > 0 && !obs.Timestamp.After(out[n-1].Timestamp) {
			continue
		}
		out = append(out, obs)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMarketData, symbol)
	}
	return out, nil
}

// seriesKey is the Redis list holding a symbol's shared rolling series
func seriesKey(symbol string) string {
	return massiveCachePrefix + "series:" + symbol
}

// latestQuote tries the unified stock snapshot first and falls back to the
// underlying asset embedded in the options snapshot
func (m *MassiveSource) latestQuote(ctx context.Context, symbol string) (models.MarketObservation, error) {
	var unified unifiedSnapshotResponse
	query := url.Values{"ticker": {symbol}, "type": {"stocks"}}
	err := m.getJSON(ctx, kindMarket, "/v3/snapshot", query, &unified)
	if err == nil {
		if quote, ok := stockQuote(&unified, symbol, m.now()); ok {
			return quote, nil
		}
	} else {
		logger.Debug("Unified snapshot unavailable, using options underlying",
			logger.Symbol(symbol),
			logger.ErrorField(err),
		)
	}

	var chain optionsSnapshotResponse
	if err := m.getJSON(ctx, kindMarket, optionsPath(symbol), nil, &chain); err != nil {
		return models.MarketObservation{}, fmt.Errorf("failed to fetch underlying quote: %w", err)
	}
	if quote, ok := underlyingQuote(&chain, symbol, m.now()); ok {
		return quote, nil
	}
	return models.MarketObservation{}, fmt.Errorf("%w: %s", ErrNoMarketData, symbol)
}

// OptionsSnapshot fetches and maps the option chain snapshot
func (m *MassiveSource) OptionsSnapshot(ctx context.Context, symbol string, underlying float64) (*models.OptionsSnapshot, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	var chain optionsSnapshotResponse
	if err := m.getJSON(ctx, kindOptions, optionsPath(symbol), nil, &chain); err != nil {
		return nil, fmt.Errorf("failed to fetch options chain: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return mapOptionsChain(&chain, symbol, underlying, m.now(), m.rng), nil
}

// HistoricalIV returns the per-contract implied volatilities of the current
// chain, at most days readings. Massive has no historical IV endpoint.
func (m *MassiveSource) HistoricalIV(ctx context.Context, symbol string, days int) ([]float64, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	var chain optionsSnapshotResponse
	if err := m.getJSON(ctx, kindIV, optionsPath(symbol), nil, &chain); err != nil {
		return nil, fmt.Errorf("failed to fetch options chain for IV: %w", err)
	}

	ivs := contractIVs(&chain)
	if days > 0 && len(ivs) > days {
		ivs = ivs[:days]
	}
	return ivs, nil
}

// getJSON performs an authenticated GET, serving from and filling the
// response cache for the call kind
func (m *MassiveSource) getJSON(ctx context.Context, kind, path string, query url.Values, dest interface{}) error {
	endpoint := m.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	cacheKey := massiveCachePrefix + kind + ":" + endpoint
	ttl := m.ttls[kind]

	if m.cache != nil && ttl > 0 {
		err := m.cache.GetJSON(ctx, cacheKey, dest)
		if err == nil {
			logger.SourceCacheHits.WithLabelValues(kind).Inc()
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Massive cache read failed",
				logger.String("key", cacheKey),
				logger.ErrorField(err),
			)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Massive request completed",
		logger.String("url", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, URL: endpoint, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if m.cache != nil && ttl > 0 {
		if err := m.cache.Set(ctx, cacheKey, dest, ttl); err != nil {
			logger.Warn("Massive cache write failed",
				logger.String("key", cacheKey),
				logger.ErrorField(err),
			)
		}
	}
	return nil
}

func optionsPath(symbol string) string {
	return "/v3/snapshot/options/" + url.PathEscape(symbol)
}
