package scanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// MarketSession is a US equity trading session
type MarketSession string

const (
	SessionPreMarket  MarketSession = "premarket"
	SessionMarket     MarketSession = "market"
	SessionPostMarket MarketSession = "postmarket"
	SessionClosed     MarketSession = "closed"
)

// Session boundaries in minutes after midnight Eastern Time
const (
	preMarketOpen  = 4 * 60
	regularOpen    = 9*60 + 30
	regularClose   = 16 * 60
	postMarketEnd  = 20 * 60
	estOffsetHours = -5
)

var (
	nyse    = calendar.GetCalendar("xnys")
	eastern = loadEastern()
)

func loadEastern() *time.Location {
	if nyse != nil && nyse.Loc != nil {
		return nyse.Loc
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// No tzdata: fixed EST, ignores daylight saving
		return time.FixedZone("EST", estOffsetHours*60*60)
	}
	return loc
}

// SessionAt returns the trading session in effect at t. Weekends and NYSE
// holidays are closed; early-close days keep the regular hours.
func SessionAt(t time.Time) MarketSession {
	et := t.In(eastern)
	if !isTradingDay(et) {
		return SessionClosed
	}

	minute := et.Hour()*60 + et.Minute()
	switch {
	case minute >= preMarketOpen && minute < regularOpen:
		return SessionPreMarket
	case minute >= regularOpen && minute < regularClose:
		return SessionMarket
	case minute >= regularClose && minute < postMarketEnd:
		return SessionPostMarket
	}
	return SessionClosed
}

func isTradingDay(et time.Time) bool {
	if nyse != nil {
		return nyse.IsBusinessDay(et)
	}
	return et.Weekday() != time.Saturday && et.Weekday() != time.Sunday
}

// ParseSessions parses names such as "premarket,market"
func ParseSessions(names []string) ([]MarketSession, error) {
	sessions := make([]MarketSession, 0, len(names))
	for _, name := range names {
		s := MarketSession(strings.ToLower(strings.TrimSpace(name)))
		switch s {
		case SessionPreMarket, SessionMarket, SessionPostMarket, SessionClosed:
			sessions = append(sessions, s)
		default:
			return nil, fmt.Errorf("unknown market session %q", name)
		}
	}
	return sessions, nil
}

// sessionActive reports whether s is one of active; an empty list means always
func sessionActive(s MarketSession, active []MarketSession) bool {
	if len(active) == 0 {
		return true
	}
	for _, a := range active {
		if a == s {
			return true
		}
	}
	return false
}
