package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradion/volatility-signals/internal/models"
)

func TestAnalyze_QuietMarketWaits(t *testing.T) {
	history, snapshot, iv := quietScenario()

	analysis, err := Analyze("SPY", history, snapshot, iv)
	require.NoError(t, err)

	assert.Equal(t, "SPY", analysis.Symbol)
	assert.False(t, analysis.Metrics.Fear.Passed())
	assert.False(t, analysis.Metrics.Overpricing.Passed())
	assert.False(t, analysis.Metrics.Exhaustion.Passed())
	assert.False(t, analysis.Metrics.OptionsLiquidity.Passed())
	assert.False(t, analysis.Metrics.TradableStructure.Passed())
	assert.Equal(t, models.StateWait, analysis.State)
	assert.Equal(t, "Insufficient context. 5 metrics not aligned. Waiting for market conditions to develop.", analysis.Explanation)
	assert.False(t, ShouldEmitSignal(analysis))
}

func TestAnalyze_ShockWithoutStallWatches(t *testing.T) {
	history, snapshot, iv := shockScenario()

	analysis, err := Analyze("QQQ", history, snapshot, iv)
	require.NoError(t, err)

	assert.True(t, analysis.Metrics.Fear.Passed(), analysis.Metrics.Fear.Explanation)
	assert.Equal(t, 100.0, analysis.Metrics.Overpricing.Score)
	assert.True(t, analysis.Metrics.Overpricing.Passed())
	assert.True(t, analysis.Metrics.OptionsLiquidity.Passed())
	assert.True(t, analysis.Metrics.TradableStructure.Passed())
	assert.False(t, analysis.Metrics.Exhaustion.Passed())

	assert.Equal(t, models.StateWatch, analysis.State)
	assert.Equal(t, "4 metrics passing, 1 metrics not yet aligned. Monitoring for full context.", analysis.Explanation)
	assert.False(t, ShouldEmitSignal(analysis))
}

func TestAnalyze_ShockWithStallSells(t *testing.T) {
	history, snapshot, iv := stallScenario()

	analysis, err := Analyze("IWM", history, snapshot, iv)
	require.NoError(t, err)

	for _, nm := range analysis.Metrics.Named() {
		assert.True(t, nm.Result.Passed(), "%s: %s", nm.Name, nm.Result.Explanation)
	}
	assert.Equal(t, models.StateSell, analysis.State)
	assert.True(t, ShouldEmitSignal(analysis))
}

func TestAnalyze_StampsTimestamp(t *testing.T) {
	history, snapshot, iv := quietScenario()
	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

	analysis, err := analyzeAt(now, "SPY", history, snapshot, iv)
	require.NoError(t, err)
	assert.Equal(t, now, analysis.Timestamp)

	fresh, err := Analyze("SPY", history, snapshot, iv)
	require.NoError(t, err)
	assert.NotSame(t, analysis, fresh)
	assert.False(t, fresh.Timestamp.IsZero())
}

func TestAnalyze_RejectsMissingInputs(t *testing.T) {
	history, snapshot, iv := quietScenario()

	_, err := Analyze("SPY", nil, snapshot, iv)
	assert.ErrorIs(t, err, ErrEmptyMarketSeries)
	assert.ErrorIs(t, err, models.ErrEmptySeries)

	_, err = Analyze("SPY", history, nil, iv)
	assert.ErrorIs(t, err, ErrMissingOptionsSnapshot)
}

func TestAnalyze_DegradedInputsStillComplete(t *testing.T) {
	history := series("DIA", []float64{400}, []int64{100})
	snapshot := &models.OptionsSnapshot{Symbol: "DIA"}

	analysis, err := Analyze("DIA", history, snapshot, nil)
	require.NoError(t, err)

	assert.Len(t, analysis.Metrics.Named(), 5)
	assert.Equal(t, 0, analysis.Metrics.PassCount())
	assert.Equal(t, models.StateWait, analysis.State)
}

func TestShouldEmitSignal(t *testing.T) {
	for _, state := range []models.AgentState{models.StateWait, models.StateWatch, models.StateSell} {
		analysis := &models.SymbolAnalysis{Symbol: "SPY", State: state}
		assert.Equal(t, state == models.StateSell, ShouldEmitSignal(analysis), string(state))
	}
	assert.False(t, ShouldEmitSignal(nil))
}
