package metrics

import (
	"fmt"
	"math"

	"github.com/tradion/volatility-signals/internal/models"
)

const exhaustionWindow = 10

// CalculateExhaustion detects a stall after expansion by comparing the
// momentum and volume of the last 10 observations with the 10 before them.
// Only history is scored.
func CalculateExhaustion(_ models.MarketObservation, history []models.MarketObservation) models.MetricResult {
	if len(history) < exhaustionWindow {
		return degraded(ExhaustionThreshold, "Insufficient data for exhaustion detection")
	}

	n := len(history)
	recent := history[n-exhaustionWindow:]
	earlier := history[max(0, n-2*exhaustionWindow) : n-exhaustionWindow]

	recentMomentum := meanAbsStep(recent)
	earlierMomentum := recentMomentum
	if len(earlier) >= 2 {
		earlierMomentum = meanAbsStep(earlier)
	}

	recentVolume := meanVolume(recent)
	earlierVolume := recentVolume
	if len(earlier) > 0 {
		earlierVolume = meanVolume(earlier)
	}

	momentumDecline := declinePct(earlierMomentum, recentMomentum)
	volumeDecline := declinePct(earlierVolume, recentVolume)
	score := math.Min(100, momentumDecline*0.6+volumeDecline*0.4)

	return newResult(score, ExhaustionThreshold, func(s float64, passed bool) string {
		if passed {
			return fmt.Sprintf("Exhaustion detected: Momentum decline %.0f%%", s)
		}
		return fmt.Sprintf("Exhaustion level %.0f%% - below threshold of %.0f%%", s, ExhaustionThreshold)
	})
}

// meanAbsStep is the mean absolute price change over consecutive pairs
func meanAbsStep(series []models.MarketObservation) float64 {
	if len(series) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(series); i++ {
		sum += math.Abs(series[i].Price - series[i-1].Price)
	}
	return sum / float64(len(series)-1)
}

func meanVolume(series []models.MarketObservation) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += float64(obs.Volume)
	}
	return sum / float64(len(series))
}

// declinePct is the percentage drop from before to after, floored at 0
func declinePct(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return math.Max(0, (before-after)/before*100)
}
