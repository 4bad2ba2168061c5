package metrics

import (
	"math"

	"github.com/tradion/volatility-signals/internal/models"
)

// Pass thresholds per metric
const (
	FearThreshold              = 70.0
	OverpricingThreshold       = 70.0
	ExhaustionThreshold        = 60.0
	OptionsLiquidityThreshold  = 65.0
	TradableStructureThreshold = 60.0
)

// explainFunc builds the explanation from the rounded score and pass outcome
type explainFunc func(score float64, passed bool) string

// newResult rounds score and derives the status from the rounded value, so a
// reported score at or above its threshold is always a pass
func newResult(score, threshold float64, explain explainFunc) models.MetricResult {
	rounded := math.Round(score)
	passed := rounded >= threshold

	status := models.StatusFail
	if passed {
		status = models.StatusPass
	}

	return models.MetricResult{
		Score:       rounded,
		Status:      status,
		Threshold:   threshold,
		Explanation: explain(rounded, passed),
	}
}

// degraded is the result for inputs too small to score
func degraded(threshold float64, explanation string) models.MetricResult {
	return models.MetricResult{
		Score:       0,
		Status:      models.StatusFail,
		Threshold:   threshold,
		Explanation: explanation,
	}
}
