package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/tradion/volatility-signals/internal/models"
)

// MinIVHistory is the fewest historical IV readings needed for a percentile
const MinIVHistory = 20

// CalculateOverpricing ranks currentIV within historicalIV (empirical CDF,
// inclusive of ties). The input slice is not modified.
func CalculateOverpricing(currentIV float64, historicalIV []float64) models.MetricResult {
	if len(historicalIV) < MinIVHistory {
		return degraded(OverpricingThreshold, "Insufficient IV history for percentile calculation")
	}

	sorted := make([]float64, len(historicalIV))
	copy(sorted, historicalIV)
	sort.Float64s(sorted)

	// count of readings <= currentIV; NaN compares below everything
	atOrBelow := 0
	if !math.IsNaN(currentIV) {
		atOrBelow = sort.Search(len(sorted), func(i int) bool { return sorted[i] > currentIV })
	}
	percentile := float64(atOrBelow) / float64(len(sorted)) * 100

	return newResult(percentile, OverpricingThreshold, func(p float64, passed bool) string {
		if passed {
			return fmt.Sprintf("IV percentile %.0f%% - options are overpriced", p)
		}
		return fmt.Sprintf("IV percentile %.0f%% - below threshold of %.0f%%", p, OverpricingThreshold)
	})
}
