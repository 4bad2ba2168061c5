package data

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradion/volatility-signals/internal/models"
)

// Massive reports implied volatility as a fraction; the engine works in percent.
var ivPercentScale = decimal.NewFromInt(100)

const defaultChainIV = 30.0

type massiveTrade struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Size  *decimal.Decimal `json:"size,omitempty"`
}

type massiveQuote struct {
	Bid *decimal.Decimal `json:"bid,omitempty"`
	Ask *decimal.Decimal `json:"ask,omitempty"`
}

type massiveSession struct {
	Close  *decimal.Decimal `json:"close,omitempty"`
	Volume *decimal.Decimal `json:"volume,omitempty"`
}

type massiveDay struct {
	Volume *decimal.Decimal `json:"volume,omitempty"`
}

// unifiedSnapshotResponse is the body of GET /v3/snapshot?ticker=SYM&type=stocks
type unifiedSnapshotResponse struct {
	Status  string                  `json:"status"`
	Results []unifiedSnapshotResult `json:"results"`
}

type unifiedSnapshotResult struct {
	Ticker    string          `json:"ticker"`
	Type      string          `json:"type"`
	LastTrade *massiveTrade   `json:"last_trade,omitempty"`
	Session   *massiveSession `json:"session,omitempty"`
}

// optionsSnapshotResponse is the body of GET /v3/snapshot/options/{underlying}
type optionsSnapshotResponse struct {
	Status  string            `json:"status"`
	Results []massiveContract `json:"results"`
}

type massiveContract struct {
	Ticker  string `json:"ticker,omitempty"`
	Details struct {
		StrikePrice    *decimal.Decimal `json:"strike_price,omitempty"`
		ContractType   string           `json:"contract_type,omitempty"`
		ExpirationDate string           `json:"expiration_date,omitempty"`
	} `json:"details"`
	LastQuote         massiveQuote       `json:"last_quote"`
	LastTrade         massiveTrade       `json:"last_trade"`
	Day               massiveDay         `json:"day"`
	OpenInterest      *decimal.Decimal   `json:"open_interest,omitempty"`
	ImpliedVolatility *decimal.Decimal   `json:"implied_volatility,omitempty"`
	UnderlyingAsset   *massiveUnderlying `json:"underlying_asset,omitempty"`
}

type massiveUnderlying struct {
	Ticker    string          `json:"ticker,omitempty"`
	LastTrade *massiveTrade   `json:"last_trade,omitempty"`
	Session   *massiveSession `json:"session,omitempty"`
}

// stockQuote maps the first stock result of a unified snapshot
func stockQuote(resp *unifiedSnapshotResponse, symbol string, now time.Time) (models.MarketObservation, bool) {
	for _, r := range resp.Results {
		if r.Type != "" && r.Type != "stocks" {
			continue
		}
		price, volume := tradeOrSession(r.LastTrade, r.Session)
		if price <= 0 {
			continue
		}
		return models.MarketObservation{Symbol: symbol, Price: price, Volume: volume, Timestamp: now}, true
	}
	return models.MarketObservation{}, false
}

// underlyingQuote maps the underlying asset embedded in the first contract
// of an options snapshot
func underlyingQuote(resp *optionsSnapshotResponse, symbol string, now time.Time) (models.MarketObservation, bool) {
	if len(resp.Results) == 0 || resp.Results[0].UnderlyingAsset == nil {
		return models.MarketObservation{}, false
	}
	u := resp.Results[0].UnderlyingAsset
	price, volume := tradeOrSession(u.LastTrade, u.Session)
	if price <= 0 {
		return models.MarketObservation{}, false
	}
	return models.MarketObservation{Symbol: symbol, Price: price, Volume: volume, Timestamp: now}, true
}

func tradeOrSession(trade *massiveTrade, session *massiveSession) (float64, int64) {
	var price float64
	var volume int64
	if trade != nil {
		price = floatOr(trade.Price, 0)
	}
	if session != nil {
		if price <= 0 {
			price = floatOr(session.Close, 0)
		}
		volume = intOr(session.Volume, 0)
	}
	return price, volume
}

type contractPair struct {
	strike     float64
	expiration string
	call       *massiveContract
	put        *massiveContract
}

// mapOptionsChain groups contracts per strike and expiration and derives the
// aggregate chain fields. An empty chain yields a synthetic default snapshot.
func mapOptionsChain(resp *optionsSnapshotResponse, symbol string, underlying float64, now time.Time, rng *rand.Rand) *models.OptionsSnapshot {
	pairs := make(map[string]*contractPair)
	for i := range resp.Results {
		c := &resp.Results[i]
		if c.Details.StrikePrice == nil || c.Details.ExpirationDate == "" {
			continue
		}
		kind := strings.ToLower(c.Details.ContractType)
		if kind == "" {
			kind = contractTypeFromTicker(c.Ticker)
		}
		if kind != "call" && kind != "put" {
			continue
		}

		strike := c.Details.StrikePrice.InexactFloat64()
		if strike <= 0 {
			continue
		}
		key := c.Details.StrikePrice.String() + "_" + c.Details.ExpirationDate
		pair, ok := pairs[key]
		if !ok {
			pair = &contractPair{strike: strike, expiration: c.Details.ExpirationDate}
			pairs[key] = pair
		}
		if kind == "call" {
			pair.call = c
		} else {
			pair.put = c
		}
	}

	if len(pairs) == 0 {
		return defaultOptionsSnapshot(symbol, underlying, now, rng)
	}

	ordered := make([]*contractPair, 0, len(pairs))
	for _, p := range pairs {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].strike != ordered[j].strike {
			return ordered[i].strike < ordered[j].strike
		}
		return ordered[i].expiration < ordered[j].expiration
	})

	snapshot := &models.OptionsSnapshot{
		Symbol:  symbol,
		Strikes: make([]models.StrikeQuote, 0, len(ordered)),
	}
	ivSum := decimal.Zero
	ivCount := 0

	for _, p := range ordered {
		q := models.StrikeQuote{Strike: p.strike}
		if p.call != nil {
			q.CallBid, q.CallAsk, q.CallVolume, q.CallOpenInterest = contractMarket(p.call)
		}
		if p.put != nil {
			q.PutBid, q.PutAsk, q.PutVolume, q.PutOpenInterest = contractMarket(p.put)
		}
		for _, c := range []*massiveContract{p.call, p.put} {
			if c != nil && c.ImpliedVolatility != nil && c.ImpliedVolatility.IsPositive() {
				ivSum = ivSum.Add(*c.ImpliedVolatility)
				ivCount++
			}
		}

		snapshot.Volume += q.CallVolume + q.PutVolume
		snapshot.OpenInterest += q.CallOpenInterest + q.PutOpenInterest
		if snapshot.Expiration == "" || p.expiration < snapshot.Expiration {
			snapshot.Expiration = p.expiration
		}
		snapshot.Strikes = append(snapshot.Strikes, q)
	}

	snapshot.IV = defaultChainIV
	if ivCount > 0 {
		snapshot.IV = ivSum.Div(decimal.NewFromInt(int64(ivCount))).Mul(ivPercentScale).InexactFloat64()
	}

	mid := defaultMidPrice
	if len(snapshot.Strikes) > 0 {
		mid = snapshot.Strikes[0].CallMid()
		for i := range snapshot.Strikes {
			if math.Abs(snapshot.Strikes[i].Strike-underlying) < atmTolerance {
				mid = snapshot.Strikes[i].CallMid()
				break
			}
		}
	}
	snapshot.Bid = mid * 0.95
	snapshot.Ask = mid * 1.05
	snapshot.Spread = mid * 0.1

	return snapshot
}

// contractMarket reads bid/ask falling back to the last trade price, and
// volume from the last trade size falling back to the day volume. A crossed
// quote is treated as missing.
func contractMarket(c *massiveContract) (bid, ask float64, volume, openInterest int64) {
	tradePrice := floatOr(c.LastTrade.Price, 0)
	bid = floatOr(c.LastQuote.Bid, tradePrice)
	ask = floatOr(c.LastQuote.Ask, tradePrice)
	if bid > 0 && ask > 0 && ask < bid {
		bid, ask = tradePrice, tradePrice
	}
	volume = intOr(c.LastTrade.Size, intOr(c.Day.Volume, 0))
	openInterest = intOr(c.OpenInterest, 0)
	return bid, ask, volume, openInterest
}

// contractIVs extracts the positive per-contract implied volatilities in percent
func contractIVs(resp *optionsSnapshotResponse) []float64 {
	ivs := make([]float64, 0, len(resp.Results))
	for i := range resp.Results {
		iv := resp.Results[i].ImpliedVolatility
		if iv != nil && iv.IsPositive() {
			ivs = append(ivs, iv.Mul(ivPercentScale).InexactFloat64())
		}
	}
	return ivs
}

func defaultOptionsSnapshot(symbol string, underlying float64, now time.Time, rng *rand.Rand) *models.OptionsSnapshot {
	return &models.OptionsSnapshot{
		Symbol:     symbol,
		Strikes:    syntheticStrikes(rng, underlying),
		Expiration: defaultExpiration(now),
		IV:         defaultChainIV,
		Bid:        2.5,
		Ask:        2.75,
		Spread:     0.25,
	}
}

// contractTypeFromTicker reads the call/put flag of an OCC ticker such as
// O:SPY251219C00500000
func contractTypeFromTicker(ticker string) string {
	if len(ticker) < 9 {
		return ""
	}
	switch ticker[len(ticker)-9] {
	case 'C':
		return "call"
	case 'P':
		return "put"
	}
	return ""
}

func floatOr(d *decimal.Decimal, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	return d.InexactFloat64()
}

func intOr(d *decimal.Decimal, fallback int64) int64 {
	if d == nil {
		return fallback
	}
	return d.IntPart()
}
