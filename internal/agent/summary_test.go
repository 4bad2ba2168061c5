package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradion/volatility-signals/internal/models"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		mask        int
		wantScore   float64
		wantPassing int
		wantProb    float64
		wantLabel   string
	}{
		{name: "all pass", mask: 31, wantScore: 90, wantPassing: 5, wantProb: 100, wantLabel: ProbabilityHigh},
		{name: "none pass", mask: 0, wantScore: 10, wantPassing: 0, wantProb: 0, wantLabel: ProbabilityLow},
		{name: "two critical", mask: 0b00011, wantScore: 42, wantPassing: 2, wantProb: 67, wantLabel: ProbabilityMedium},
		{name: "one critical", mask: 0b11001, wantScore: 58, wantPassing: 3, wantProb: 33, wantLabel: ProbabilityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Summarize(&models.SymbolAnalysis{Metrics: metricsFromMask(tt.mask)})

			assert.Equal(t, tt.wantScore, summary.ContextScore)
			assert.Equal(t, tt.wantPassing, summary.PassingMetrics)
			assert.Equal(t, 5, summary.TotalMetrics)
			assert.Equal(t, tt.wantProb, summary.SellProbability)
			assert.Equal(t, tt.wantLabel, summary.ProbabilityLabel)
		})
	}
}

func TestSummarize_Nil(t *testing.T) {
	assert.Equal(t, ProbabilityLow, Summarize(nil).ProbabilityLabel)
}
