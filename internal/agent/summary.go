package agent

import (
	"math"

	"github.com/tradion/volatility-signals/internal/models"
)

// SellProbability labels
const (
	ProbabilityHigh   = "HIGH"
	ProbabilityMedium = "MEDIUM"
	ProbabilityLow    = "LOW"
)

// Summary is the dashboard view of an analysis
type Summary struct {
	ContextScore     float64 `json:"context_score"`
	PassingMetrics   int     `json:"passing_metrics"`
	TotalMetrics     int     `json:"total_metrics"`
	SellProbability  float64 `json:"sell_probability"`
	ProbabilityLabel string  `json:"probability_label"`
}

// Summarize derives the context score (mean of the five scores) and the sell
// probability, which counts only fear, overpricing and exhaustion
func Summarize(analysis *models.SymbolAnalysis) Summary {
	if analysis == nil {
		return Summary{ProbabilityLabel: ProbabilityLow}
	}

	named := analysis.Metrics.Named()
	var total float64
	for _, nm := range named {
		total += nm.Result.Score
	}

	critical := []models.MetricResult{
		analysis.Metrics.Fear,
		analysis.Metrics.Overpricing,
		analysis.Metrics.Exhaustion,
	}
	criticalPassed := 0
	for _, m := range critical {
		if m.Passed() {
			criticalPassed++
		}
	}
	probability := math.Round(float64(criticalPassed) / float64(len(critical)) * 100)

	label := ProbabilityLow
	switch {
	case probability >= 80:
		label = ProbabilityHigh
	case probability >= 50:
		label = ProbabilityMedium
	}

	return Summary{
		ContextScore:     math.Round(total / float64(len(named))),
		PassingMetrics:   analysis.Metrics.PassCount(),
		TotalMetrics:     len(named),
		SellProbability:  probability,
		ProbabilityLabel: label,
	}
}
