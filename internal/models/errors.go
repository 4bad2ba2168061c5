package models

import "errors"

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrInvalidStrike    = errors.New("invalid strike")
	ErrInvalidQuote     = errors.New("invalid quote (negative price or ask < bid)")
	ErrInvalidIV        = errors.New("invalid implied volatility")
	ErrEmptySeries      = errors.New("market series is empty")
	ErrUnorderedSeries  = errors.New("market series is not ordered oldest to newest")
	ErrInvalidState     = errors.New("invalid agent state")
	ErrInvalidSignalID  = errors.New("invalid signal ID")
)
