package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tradion/volatility-signals/internal/data"
	"github.com/tradion/volatility-signals/internal/models"
)

var fixtureStart = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

var errCollect = errors.New("collect failed")

func observations(symbol string, prices []float64, volumes []int64) []models.MarketObservation {
	out := make([]models.MarketObservation, len(prices))
	for i := range prices {
		out[i] = models.MarketObservation{
			Symbol:    symbol,
			Price:     prices[i],
			Volume:    volumes[i],
			Timestamp: fixtureStart.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

// stallInputs expands for ten steps then goes quiet on lighter volume with a
// heavy final print, over a liquid chain and cheap IV history: a SELL setup
func stallInputs(symbol string) *data.Inputs {
	prices := make([]float64, 20)
	volumes := make([]int64, 20)
	for i := range prices {
		switch {
		case i >= 10:
			prices[i] = 105
			volumes[i] = 500
		case i%2 == 1:
			prices[i] = 110
			volumes[i] = 3000
		default:
			prices[i] = 100
			volumes[i] = 3000
		}
	}
	volumes[19] = 3000

	strikes := make([]models.StrikeQuote, 0, 12)
	for k := 1; k <= 12; k++ {
		bid := 3.0 - 0.2*float64(k)
		strikes = append(strikes, models.StrikeQuote{
			Strike:           105 + 5*float64(k),
			CallBid:          bid,
			CallAsk:          bid * 1.05,
			CallVolume:       100,
			CallOpenInterest: 400,
		})
	}

	ivs := make([]float64, 252)
	for i := range ivs {
		ivs[i] = 20 + float64(i%100)*0.09
	}

	return &data.Inputs{
		Symbol: symbol,
		Series: observations(symbol, prices, volumes),
		Snapshot: &models.OptionsSnapshot{
			Symbol:       symbol,
			Strikes:      strikes,
			Expiration:   "2025-03-21",
			IV:           35,
			Volume:       2000,
			OpenInterest: 8000,
			Bid:          1.00,
			Ask:          1.02,
			Spread:       0.02,
		},
		HistoricalIV: ivs,
		Source:       "stub",
	}
}

// quietInputs is a calm tape over an illiquid chain: a WAIT setup
func quietInputs(symbol string) *data.Inputs {
	prices := make([]float64, 25)
	volumes := make([]int64, 25)
	for i := range prices {
		prices[i] = 100
		if i%2 == 1 {
			prices[i] = 100.1
		}
		volumes[i] = 1_000_000
	}

	ivs := make([]float64, 252)
	for i := range ivs {
		ivs[i] = 25 + 10*float64(i)/251
	}

	return &data.Inputs{
		Symbol: symbol,
		Series: observations(symbol, prices, volumes),
		Snapshot: &models.OptionsSnapshot{
			Symbol:     symbol,
			Expiration: "2025-03-21",
			IV:         30,
			Bid:        0.5,
			Ask:        1.5,
			Spread:     1.0,
			Strikes: []models.StrikeQuote{
				{Strike: 105, CallBid: 0.5, CallAsk: 1.5},
				{Strike: 110, CallBid: 0.2, CallAsk: 1.2},
			},
		},
		HistoricalIV: ivs,
		Source:       "stub",
	}
}

// stubCollector serves canned inputs per symbol
type stubCollector struct {
	mu     sync.Mutex
	inputs map[string]func(string) *data.Inputs
	calls  map[string]int
}

func newStubCollector(inputs map[string]func(string) *data.Inputs) *stubCollector {
	return &stubCollector{inputs: inputs, calls: make(map[string]int)}
}

func (c *stubCollector) Collect(ctx context.Context, symbol string) (*data.Inputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[symbol]++
	build, ok := c.inputs[symbol]
	if !ok {
		return nil, errCollect
	}
	return build(symbol), nil
}

func (c *stubCollector) callCount(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[symbol]
}

// recordingEmitter records emitted signals
type recordingEmitter struct {
	mu      sync.Mutex
	signals []*models.Signal
	err     error
}

func (e *recordingEmitter) EmitSignal(ctx context.Context, signal *models.Signal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.signals = append(e.signals, signal)
	return nil
}

func (e *recordingEmitter) emitted() []*models.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*models.Signal(nil), e.signals...)
}
