package agent

import (
	"time"

	"github.com/tradion/volatility-signals/internal/models"
)

var fixtureStart = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

func series(symbol string, prices []float64, volumes []int64) []models.MarketObservation {
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

// liquidChain returns 12 OTM strikes at $5 spacing above price with tight call markets
func liquidChain(symbol string, price float64) *models.OptionsSnapshot {
	strikes := make([]models.StrikeQuote, 0, 12)
	for k := 1; k <= 12; k++ {
		bid := 3.0 - 0.2*float64(k)
		strikes = append(strikes, models.StrikeQuote{
			Strike:           price + 5*float64(k),
			CallBid:          bid,
			CallAsk:          bid * 1.05,
			CallVolume:       100,
			CallOpenInterest: 400,
			PutBid:           bid,
			PutAsk:           bid * 1.05,
		})
	}
	return &models.OptionsSnapshot{
		Symbol:       symbol,
		Strikes:      strikes,
		Expiration:   "2025-03-21",
		IV:           35,
		Volume:       2000,
		OpenInterest: 8000,
		Bid:          1.00,
		Ask:          1.02,
		Spread:       0.02,
	}
}

// ivBelow returns 252 readings strictly below 30
func ivBelow() []float64 {
	out := make([]float64, 252)
	for i := range out {
		out[i] = 20 + float64(i%100)*0.09
	}
	return out
}

// ivAround30 returns 252 readings spread evenly over [25, 35]
func ivAround30() []float64 {
	out := make([]float64, 252)
	for i := range out {
		out[i] = 25 + 10*float64(i)/251
	}
	return out
}

// quietScenario is a calm tape with an illiquid chain
func quietScenario() ([]models.MarketObservation, *models.OptionsSnapshot, []float64) {
	prices := make([]float64, 25)
	volumes := make([]int64, 25)
	for i := range prices {
		prices[i] = 100
		if i%2 == 1 {
			prices[i] = 100.1
		}
		volumes[i] = 1_000_000
	}

	snapshot := &models.OptionsSnapshot{
		Symbol:     "SPY",
		Expiration: "2025-03-21",
		IV:         30,
		Bid:        0.5,
		Ask:        1.5,
		Spread:     1.0,
		Strikes: []models.StrikeQuote{
			{Strike: 105, CallBid: 0.5, CallAsk: 1.5},
			{Strike: 110, CallBid: 0.2, CallAsk: 1.2},
		},
	}
	return series("SPY", prices, volumes), snapshot, ivAround30()
}

// shockScenario swings 5% every step with a 3x volume print on the last
// observation, so momentum has not faded
func shockScenario() ([]models.MarketObservation, *models.OptionsSnapshot, []float64) {
	prices := make([]float64, 25)
	volumes := make([]int64, 25)
	for i := range prices {
		prices[i] = 100
		if i%2 == 1 {
			prices[i] = 105
		}
		volumes[i] = 1000
	}
	volumes[24] = 3000

	return series("QQQ", prices, volumes), liquidChain("QQQ", prices[24]), ivBelow()
}

// stallScenario expands for ten steps, then goes quiet on lighter volume
// apart from a heavy final print
func stallScenario() ([]models.MarketObservation, *models.OptionsSnapshot, []float64) {
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

	return series("IWM", prices, volumes), liquidChain("IWM", prices[19]), ivBelow()
}
