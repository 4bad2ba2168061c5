package agent

import (
	"fmt"

	"github.com/tradion/volatility-signals/internal/models"
)

// DetermineState classifies a symbol from its five metrics:
// all pass -> SELL, none pass -> WAIT, anything else -> WATCH.
// It keeps no memory between calls.
func DetermineState(metrics models.AgentMetrics) models.AgentState {
	passed := metrics.PassCount()
	switch {
	case passed == len(metrics.Named()):
		return models.StateSell
	case passed > 0:
		return models.StateWatch
	default:
		return models.StateWait
	}
}

// ExplainState renders the pass/fail counts behind a state
func ExplainState(state models.AgentState, metrics models.AgentMetrics) string {
	passed := metrics.PassCount()
	failed := len(metrics.Named()) - passed

	switch state {
	case models.StateSell:
		return fmt.Sprintf("All metrics aligned. %d metrics passing. Context supports volatility selling.", passed)
	case models.StateWatch:
		return fmt.Sprintf("%d metrics passing, %d metrics not yet aligned. Monitoring for full context.", passed, failed)
	case models.StateWait:
		return fmt.Sprintf("Insufficient context. %d metrics not aligned. Waiting for market conditions to develop.", failed)
	default:
		return "State evaluation in progress."
	}
}
