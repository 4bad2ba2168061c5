package models

import "time"

// MetricStatus is the pass/fail outcome of one metric
type MetricStatus string

const (
	StatusPass MetricStatus = "pass"
	StatusFail MetricStatus = "fail"
)

// MetricResult is the output of one metric calculator
type MetricResult struct {
	Score       float64      `json:"score"`
	Status      MetricStatus `json:"status"`
	Threshold   float64      `json:"threshold"`
	Explanation string       `json:"explanation"`
}

// Passed reports whether the metric met its threshold
func (m MetricResult) Passed() bool {
	return m.Status == StatusPass
}

// AgentMetrics holds the five context metrics. All five are always present.
type AgentMetrics struct {
	Fear              MetricResult `json:"fear"`
	Overpricing       MetricResult `json:"overpricing"`
	Exhaustion        MetricResult `json:"exhaustion"`
	OptionsLiquidity  MetricResult `json:"options_liquidity"`
	TradableStructure MetricResult `json:"tradable_structure"`
}

// NamedMetric pairs a metric with its display name
type NamedMetric struct {
	Key    string
	Name   string
	Result MetricResult
}

// Named returns the five metrics in a fixed order
func (m AgentMetrics) Named() []NamedMetric {
	return []NamedMetric{
		{Key: "fear", Name: "Fear", Result: m.Fear},
		{Key: "overpricing", Name: "Overpricing", Result: m.Overpricing},
		{Key: "exhaustion", Name: "Exhaustion", Result: m.Exhaustion},
		{Key: "options_liquidity", Name: "Options Liquidity", Result: m.OptionsLiquidity},
		{Key: "tradable_structure", Name: "Tradable Structure", Result: m.TradableStructure},
	}
}

// PassCount returns how many of the five metrics passed
func (m AgentMetrics) PassCount() int {
	passed := 0
	for _, nm := range m.Named() {
		if nm.Result.Passed() {
			passed++
		}
	}
	return passed
}

// AgentState is the trading-readiness state of a symbol
type AgentState string

const (
	StateWait  AgentState = "WAIT"
	StateWatch AgentState = "WATCH"
	StateSell  AgentState = "SELL"
)

// Valid reports whether s is one of the three known states
func (s AgentState) Valid() bool {
	switch s {
	case StateWait, StateWatch, StateSell:
		return true
	}
	return false
}

// SymbolAnalysis is the complete analysis for a single symbol
type SymbolAnalysis struct {
	Symbol      string       `json:"symbol"`
	State       AgentState   `json:"state"`
	Metrics     AgentMetrics `json:"metrics"`
	Timestamp   time.Time    `json:"timestamp"`
	Explanation string       `json:"explanation"`
}
