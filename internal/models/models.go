package models

import (
	"time"
)

// MarketObservation is one sampled price/volume point for a symbol
type MarketObservation struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate validates a MarketObservation
func (o *MarketObservation) Validate() error {
	if o.Symbol == "" {
		return ErrInvalidSymbol
	}
	if o.Price <= 0 {
		return ErrInvalidPrice
	}
	if o.Volume < 0 {
		return ErrInvalidVolume
	}
	if o.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// ValidateSeries checks that a market series is non-empty, valid and ordered oldest to newest
func ValidateSeries(series []MarketObservation) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	for i := range series {
		if err := series[i].Validate(); err != nil {
			return err
		}
		if i > 0 && series[i].Timestamp.Before(series[i-1].Timestamp) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// StrikeQuote is the call/put market at one strike for one expiration
type StrikeQuote struct {
	Strike           float64 `json:"strike"`
	CallBid          float64 `json:"call_bid"`
	CallAsk          float64 `json:"call_ask"`
	CallVolume       int64   `json:"call_volume"`
	CallOpenInterest int64   `json:"call_open_interest"`
	PutBid           float64 `json:"put_bid"`
	PutAsk           float64 `json:"put_ask"`
	PutVolume        int64   `json:"put_volume"`
	PutOpenInterest  int64   `json:"put_open_interest"`
}

// CallMid returns the call mid price
func (s *StrikeQuote) CallMid() float64 {
	return (s.CallBid + s.CallAsk) / 2
}

// Validate validates a StrikeQuote
func (s *StrikeQuote) Validate() error {
	if s.Strike <= 0 {
		return ErrInvalidStrike
	}
	if s.CallBid < 0 || s.CallAsk < 0 || s.PutBid < 0 || s.PutAsk < 0 {
		return ErrInvalidQuote
	}
	if (s.CallBid > 0 && s.CallAsk > 0 && s.CallAsk < s.CallBid) ||
		(s.PutBid > 0 && s.PutAsk > 0 && s.PutAsk < s.PutBid) {
		return ErrInvalidQuote
	}
	if s.CallVolume < 0 || s.PutVolume < 0 || s.CallOpenInterest < 0 || s.PutOpenInterest < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// OptionsSnapshot is the options chain for one symbol at a single expiration
// (or an aggregate across expirations, depending on the source).
// Bid/Ask/Spread describe a representative contract, usually the at-the-money call.
type OptionsSnapshot struct {
	Symbol       string        `json:"symbol"`
	Strikes      []StrikeQuote `json:"strikes"`
	Expiration   string        `json:"expiration"`
	IV           float64       `json:"iv"`
	Volume       int64         `json:"volume"`
	OpenInterest int64         `json:"open_interest"`
	Bid          float64       `json:"bid"`
	Ask          float64       `json:"ask"`
	Spread       float64       `json:"spread"`
}

// Validate validates an OptionsSnapshot. An empty strikes list is valid.
func (o *OptionsSnapshot) Validate() error {
	if o.Symbol == "" {
		return ErrInvalidSymbol
	}
	if o.IV < 0 {
		return ErrInvalidIV
	}
	if o.Bid < 0 || o.Ask < o.Bid {
		return ErrInvalidQuote
	}
	if o.Volume < 0 || o.OpenInterest < 0 {
		return ErrInvalidVolume
	}
	for i := range o.Strikes {
		if err := o.Strikes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
