package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradion/volatility-signals/internal/models"
)

func sampleChain() *models.OptionsSnapshot {
	return &models.OptionsSnapshot{
		Symbol:     "SPY",
		Expiration: "2025-01-17",
		Strikes: []models.StrikeQuote{
			{Strike: 95, CallBid: 6.0, CallAsk: 6.2, CallVolume: 500},                        // ITM
			{Strike: 105, CallBid: 1.0, CallAsk: 1.1, CallVolume: 20},                        // viable
			{Strike: 110, CallBid: 0.50, CallAsk: 0.55, CallOpenInterest: 100},               // viable on OI
			{Strike: 115, CallBid: 0.30, CallAsk: 0.32, CallVolume: 5, CallOpenInterest: 10}, // illiquid
			{Strike: 120, CallBid: 0.10, CallAsk: 0.20, CallVolume: 100},                     // spread too wide
		},
	}
}

func TestCalculateTradableStructure(t *testing.T) {
	oneViable := sampleChain()
	oneViable.Strikes[2].CallOpenInterest = 0

	noneViable := sampleChain()
	noneViable.Strikes[1].CallBid = 0
	noneViable.Strikes[2].CallOpenInterest = 0

	tests := []struct {
		name       string
		snapshot   *models.OptionsSnapshot
		price      float64
		wantScore  float64
		wantStatus models.MetricStatus
	}{
		{
			name:       "two viable strikes",
			snapshot:   sampleChain(),
			price:      100,
			wantScore:  70,
			wantStatus: models.StatusPass,
		},
		{
			name:       "one viable strike",
			snapshot:   oneViable,
			price:      100,
			wantScore:  40,
			wantStatus: models.StatusFail,
		},
		{
			name:       "no viable strikes",
			snapshot:   noneViable,
			price:      100,
			wantScore:  12,
			wantStatus: models.StatusFail,
		},
		{
			name:       "price above the chain",
			snapshot:   sampleChain(),
			price:      200,
			wantScore:  12,
			wantStatus: models.StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateTradableStructure(tt.snapshot, tt.price)

			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, TradableStructureThreshold, result.Threshold)
		})
	}
}

func TestCalculateTradableStructure_FewerThanTwoStrikes(t *testing.T) {
	single := &models.OptionsSnapshot{
		Symbol:  "SPY",
		Strikes: []models.StrikeQuote{{Strike: 105, CallBid: 1, CallAsk: 1.05, CallVolume: 1000}},
	}
	empty := &models.OptionsSnapshot{Symbol: "SPY"}

	for _, snapshot := range []*models.OptionsSnapshot{single, empty, nil} {
		for _, price := range []float64{0, 50, 100, 1000} {
			result := CalculateTradableStructure(snapshot, price)
			assert.Equal(t, 0.0, result.Score)
			assert.Equal(t, models.StatusFail, result.Status)
			assert.Equal(t, "Insufficient strike data for structure evaluation", result.Explanation)
		}
	}
}

func TestViableCallStrikes(t *testing.T) {
	viable := ViableCallStrikes(sampleChain(), 100)

	require.Len(t, viable, 2)
	assert.Equal(t, 105.0, viable[0].Strike)
	assert.Equal(t, 110.0, viable[1].Strike)
}

func TestViableCallStrikes_LiquidityIsStrict(t *testing.T) {
	chain := &models.OptionsSnapshot{
		Symbol: "SPY",
		Strikes: []models.StrikeQuote{
			{Strike: 105, CallBid: 1.0, CallAsk: 1.1, CallVolume: 10, CallOpenInterest: 50},
			{Strike: 110, CallBid: 1.0, CallAsk: 1.1, CallVolume: 11},
		},
	}

	viable := ViableCallStrikes(chain, 100)

	require.Len(t, viable, 1)
	assert.Equal(t, 110.0, viable[0].Strike)
}

func TestCalculateTradableStructure_Explanation(t *testing.T) {
	result := CalculateTradableStructure(sampleChain(), 100)
	assert.Equal(t, "Viable structure: 2 tradable strikes identified", result.Explanation)
}
