package metrics

import (
	"fmt"

	"github.com/tradion/volatility-signals/internal/models"
)

// CalculateOptionsLiquidity scores the representative quote spread together
// with aggregate volume and open interest. The weighted score is not clamped.
func CalculateOptionsLiquidity(snapshot *models.OptionsSnapshot) models.MetricResult {
	if snapshot == nil {
		snapshot = &models.OptionsSnapshot{}
	}

	spreadPct := SpreadPercent(snapshot.Bid, snapshot.Ask)
	spreadScore := max(0, 100-spreadPct*10)
	volumeScore := min(100, float64(snapshot.Volume)/1000*10)
	oiScore := min(100, float64(snapshot.OpenInterest)/500*10)

	score := spreadScore*0.5 + volumeScore*0.3 + oiScore*0.2

	return newResult(score, OptionsLiquidityThreshold, func(s float64, passed bool) string {
		if passed {
			return fmt.Sprintf("Liquidity adequate: Spread %.2f%%, Volume %d, OI %d",
				spreadPct, snapshot.Volume, snapshot.OpenInterest)
		}
		return fmt.Sprintf("Liquidity insufficient: Score %.0f%% below threshold of %.0f%%", s, OptionsLiquidityThreshold)
	})
}

// SpreadPercent is (ask-bid)/mid*100, or 100 when mid is not positive
func SpreadPercent(bid, ask float64) float64 {
	mid := (bid + ask) / 2
	if mid <= 0 {
		return 100
	}
	return (ask - bid) / mid * 100
}
