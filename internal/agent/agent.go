package agent

import (
	"errors"
	"time"

	"github.com/tradion/volatility-signals/internal/metrics"
	"github.com/tradion/volatility-signals/internal/models"
)

var (
	// ErrEmptyMarketSeries is returned when Analyze gets no market observations
	ErrEmptyMarketSeries = models.ErrEmptySeries
	// ErrMissingOptionsSnapshot is returned when Analyze gets a nil snapshot
	ErrMissingOptionsSnapshot = errors.New("options snapshot is missing")
)

// Analyze computes the five metrics for a symbol and classifies it.
// history must be ordered oldest to newest; its last element is the current
// observation. The returned analysis is a fresh value each call.
func Analyze(
	symbol string,
	history []models.MarketObservation,
	snapshot *models.OptionsSnapshot,
	historicalIV []float64,
) (*models.SymbolAnalysis, error) {
	return analyzeAt(time.Now(), symbol, history, snapshot, historicalIV)
}

func analyzeAt(
	now time.Time,
	symbol string,
	history []models.MarketObservation,
	snapshot *models.OptionsSnapshot,
	historicalIV []float64,
) (*models.SymbolAnalysis, error) {
	if len(history) == 0 {
		return nil, ErrEmptyMarketSeries
	}
	if snapshot == nil {
		return nil, ErrMissingOptionsSnapshot
	}

	agentMetrics := metrics.ComputeAll(metrics.Inputs{
		Series:       history,
		Snapshot:     snapshot,
		HistoricalIV: historicalIV,
	})

	state := DetermineState(agentMetrics)

	return &models.SymbolAnalysis{
		Symbol:      symbol,
		State:       state,
		Metrics:     agentMetrics,
		Timestamp:   now,
		Explanation: ExplainState(state, agentMetrics),
	}, nil
}

// ShouldEmitSignal reports whether an analysis warrants a trade alert
func ShouldEmitSignal(analysis *models.SymbolAnalysis) bool {
	return analysis != nil && analysis.State == models.StateSell
}
