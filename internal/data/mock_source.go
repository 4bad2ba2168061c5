package data

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradion/volatility-signals/internal/models"
)

const (
	defaultIVHistoryDays = 252
	defaultExpiryOffset  = 30 * 24 * time.Hour
	strikeSpacing        = 5.0
	atmTolerance         = 2.5
	defaultMidPrice      = 2.5
)

// MockSource generates synthetic market and options data from a seeded generator
type MockSource struct {
	name string
	rng  *rand.Rand
	mu   sync.Mutex
	now  func() time.Time
}

// NewMockSource creates a new mock source. Equal seeds produce equal data.
func NewMockSource(cfg SourceConfig) (Source, error) {
	return newMockSource(cfg.Seed), nil
}

func newMockSource(seed int64) *MockSource {
	return &MockSource{
		name: "mock",
		rng:  rand.New(rand.NewSource(seed)),
		now:  time.Now,
	}
}

// Name returns the source name
func (m *MockSource) Name() string {
	return m.name
}

// MarketSeries generates a random walk of one-minute observations
func (m *MockSource) MarketSeries(ctx context.Context, symbol string, points int) ([]models.MarketObservation, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if points < 1 {
		points = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	basePrice := 100 + m.rng.Float64()*50
	series := make([]models.MarketObservation, points)
	price := basePrice

	for i := 0; i < points; i++ {
		volatility := 0.02 + m.rng.Float64()*0.05
		change := (m.rng.Float64() - 0.5) * volatility * basePrice
		if i > 0 {
			price = series[i-1].Price + change
		}
		// Keep the walk strictly positive
		if price <= 0.01 {
			price = 0.01
		}

		series[i] = models.MarketObservation{
			Symbol:    symbol,
			Price:     roundCents(price),
			Volume:    int64(1_000_000 + m.rng.Float64()*2_000_000),
			Timestamp: now.Add(-time.Duration(points-i) * time.Minute),
		}
	}

	return series, nil
}

// OptionsSnapshot generates a 16-strike chain around the underlying price
func (m *MockSource) OptionsSnapshot(ctx context.Context, symbol string, underlying float64) (*models.OptionsSnapshot, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	strikes := syntheticStrikes(m.rng, underlying)
	mid := atmCallMid(strikes, underlying)

	return &models.OptionsSnapshot{
		Symbol:       symbol,
		Strikes:      strikes,
		Expiration:   defaultExpiration(m.now()),
		IV:           25 + m.rng.Float64()*30,
		Volume:       int64(1000 + m.rng.Float64()*2000),
		OpenInterest: int64(5000 + m.rng.Float64()*10000),
		Bid:          mid * 0.95,
		Ask:          mid * 1.05,
		Spread:       mid * 0.1,
	}, nil
}

// HistoricalIV generates readings scattered around 30% and clamped to [10, 80]
func (m *MockSource) HistoricalIV(ctx context.Context, symbol string, days int) ([]float64, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days < 1 {
		days = defaultIVHistoryDays
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	const baseIV = 30.0
	ivs := make([]float64, days)
	for i := range ivs {
		change := (m.rng.Float64() - 0.5) * 10
		ivs[i] = math.Max(10, math.Min(80, baseIV+change))
	}
	return ivs, nil
}

// syntheticStrikes builds strikes at $5 spacing from base-25 to base+50,
// priced by moneyness. Calls above the underlying are OTM, puts below.
func syntheticStrikes(rng *rand.Rand, underlying float64) []models.StrikeQuote {
	baseStrike := math.Round(underlying/strikeSpacing) * strikeSpacing
	strikes := make([]models.StrikeQuote, 0, 16)

	for i := -5; i <= 10; i++ {
		strike := baseStrike + float64(i)*strikeSpacing
		if strike <= 0 {
			continue
		}
		callOTM := strike > underlying
		moneyness := 0.0
		if underlying > 0 {
			moneyness = math.Abs(strike-underlying) / underlying
		}

		callBid, callAsk := sidePrices(callOTM, moneyness)
		putBid, putAsk := sidePrices(!callOTM, moneyness)
		callVolume, callOI := sideActivity(rng, callOTM)
		putVolume, putOI := sideActivity(rng, !callOTM)

		strikes = append(strikes, models.StrikeQuote{
			Strike:           strike,
			CallBid:          callBid,
			CallAsk:          callAsk,
			CallVolume:       callVolume,
			CallOpenInterest: callOI,
			PutBid:           putBid,
			PutAsk:           putAsk,
			PutVolume:        putVolume,
			PutOpenInterest:  putOI,
		})
	}
	return strikes
}

func sidePrices(otm bool, moneyness float64) (bid, ask float64) {
	if otm {
		return math.Max(0.1, 2-moneyness*10), math.Max(0.2, 2.5-moneyness*10)
	}
	return math.Max(0.5, 5-moneyness*5), math.Max(0.6, 5.5-moneyness*5)
}

func sideActivity(rng *rand.Rand, otm bool) (volume, openInterest int64) {
	if otm {
		return int64(50 + rng.Float64()*200), int64(100 + rng.Float64()*400)
	}
	return int64(100 + rng.Float64()*500), int64(200 + rng.Float64()*800)
}

// atmCallMid returns the call mid of the first strike within $2.50 of the
// underlying, or the default mid when none is that close
func atmCallMid(strikes []models.StrikeQuote, underlying float64) float64 {
	for i := range strikes {
		if math.Abs(strikes[i].Strike-underlying) < atmTolerance {
			return strikes[i].CallMid()
		}
	}
	return defaultMidPrice
}

func defaultExpiration(now time.Time) string {
	return now.Add(defaultExpiryOffset).UTC().Format("2006-01-02")
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
