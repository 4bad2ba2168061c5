package models

import "time"

// CallCreditSpread is a proposed defined-risk short call spread
type CallCreditSpread struct {
	SellStrike  float64 `json:"sell_strike"`
	BuyStrike   float64 `json:"buy_strike"`
	Expiration  string  `json:"expiration"`
	Credit      float64 `json:"credit"`
	MaxRisk     float64 `json:"max_risk"`
	MaxReward   float64 `json:"max_reward"`
	Probability float64 `json:"probability"`
}

// Signal is an emitted SELL alert for a symbol
type Signal struct {
	ID               string            `json:"id"`
	Symbol           string            `json:"symbol"`
	State            AgentState        `json:"state"`
	Price            float64           `json:"price"`
	Metrics          AgentMetrics      `json:"metrics"`
	CallCreditSpread *CallCreditSpread `json:"call_credit_spread,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	Explanation      string            `json:"explanation"`
	Source           string            `json:"source,omitempty"`
	TraceID          string            `json:"trace_id,omitempty"`
}

// Validate validates a Signal
func (s *Signal) Validate() error {
	if s.ID == "" {
		return ErrInvalidSignalID
	}
	if s.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !s.State.Valid() {
		return ErrInvalidState
	}
	if s.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}
