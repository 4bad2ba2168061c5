package metrics

import (
	"fmt"

	"github.com/tradion/volatility-signals/internal/models"
)

const (
	minCallVolume       = 10
	minCallOpenInterest = 50
	maxCallSpreadRatio  = 0.2
)

// CalculateTradableStructure checks whether an OTM call credit spread can be
// built from the chain around currentPrice
func CalculateTradableStructure(snapshot *models.OptionsSnapshot, currentPrice float64) models.MetricResult {
	if snapshot == nil || len(snapshot.Strikes) < 2 {
		return degraded(TradableStructureThreshold, "Insufficient strike data for structure evaluation")
	}

	viable := len(ViableCallStrikes(snapshot, currentPrice))

	var creditScore, spacingScore, riskRewardScore float64
	if viable > 0 {
		creditScore = 70
	}
	spacingScore = 40
	if viable >= 2 {
		spacingScore = 80
		riskRewardScore = 60
	}

	score := creditScore*0.4 + spacingScore*0.3 + riskRewardScore*0.3

	return newResult(score, TradableStructureThreshold, func(_ float64, passed bool) string {
		if passed {
			return fmt.Sprintf("Viable structure: %d tradable strikes identified", viable)
		}
		return fmt.Sprintf("Structure not viable: %d strikes available, insufficient for defined-risk spread", viable)
	})
}

// ViableCallStrikes returns the OTM strikes with enough call liquidity and a
// call spread tighter than 20% of mid, in chain order
func ViableCallStrikes(snapshot *models.OptionsSnapshot, currentPrice float64) []models.StrikeQuote {
	if snapshot == nil {
		return nil
	}

	viable := make([]models.StrikeQuote, 0, len(snapshot.Strikes))
	for _, s := range snapshot.Strikes {
		if s.Strike <= currentPrice {
			continue
		}
		if s.CallVolume <= minCallVolume && s.CallOpenInterest <= minCallOpenInterest {
			continue
		}
		if s.CallBid <= 0 || s.CallAsk <= 0 {
			continue
		}
		if (s.CallAsk-s.CallBid)/s.CallMid() >= maxCallSpreadRatio {
			continue
		}
		viable = append(viable, s)
	}
	return viable
}
