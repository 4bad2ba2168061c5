package metrics

import (
	"fmt"
	"math"

	"github.com/tradion/volatility-signals/internal/models"
)

const fearWindow = 20

// CalculateFear scores aggressive price expansion and volume shock.
// The window is the last 20 observations of history; current supplies the volume
// compared against the window average.
func CalculateFear(current models.MarketObservation, history []models.MarketObservation) models.MetricResult {
	if len(history) < 2 {
		return degraded(FearThreshold, "Insufficient historical data for fear calculation")
	}

	window := history
	if len(window) > fearWindow {
		window = window[len(window)-fearWindow:]
	}

	var sumChange, maxChange float64
	steps := 0
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Price
		if prev <= 0 {
			continue
		}
		change := math.Abs((window[i].Price - prev) / prev)
		sumChange += change
		maxChange = math.Max(maxChange, change)
		steps++
	}

	var avgChange float64
	if steps > 0 {
		avgChange = sumChange / float64(steps)
	}

	var totalVolume float64
	for _, obs := range window {
		totalVolume += float64(obs.Volume)
	}
	avgVolume := math.Max(totalVolume/float64(len(window)), 1)
	volumeSpike := float64(current.Volume) / avgVolume

	volatilityScore := math.Min(100, avgChange*1000+maxChange*500)
	volumeScore := math.Min(100, (volumeSpike-1)*50)
	score := math.Min(100, volatilityScore*0.7+volumeScore*0.3)

	return newResult(score, FearThreshold, func(s float64, passed bool) string {
		if passed {
			return fmt.Sprintf("High fear detected: Volatility %.0f%% above baseline", s)
		}
		return fmt.Sprintf("Fear level %.0f%% - below threshold of %.0f%%", s, FearThreshold)
	})
}
