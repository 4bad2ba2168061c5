package metrics

import "github.com/tradion/volatility-signals/internal/models"

// Inputs is everything the five calculators read for one symbol
type Inputs struct {
	Series       []models.MarketObservation
	Snapshot     *models.OptionsSnapshot
	HistoricalIV []float64
}

// ComputeAll runs the five calculators. Series must be non-empty; the last
// observation is treated as current.
func ComputeAll(in Inputs) models.AgentMetrics {
	current := in.Series[len(in.Series)-1]

	var currentIV float64
	if in.Snapshot != nil {
		currentIV = in.Snapshot.IV
	}

	return models.AgentMetrics{
		Fear:              CalculateFear(current, in.Series),
		Overpricing:       CalculateOverpricing(currentIV, in.HistoricalIV),
		Exhaustion:        CalculateExhaustion(current, in.Series),
		OptionsLiquidity:  CalculateOptionsLiquidity(in.Snapshot),
		TradableStructure: CalculateTradableStructure(in.Snapshot, current.Price),
	}
}
