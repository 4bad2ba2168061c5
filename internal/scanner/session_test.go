package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAt(t *testing.T) {
	// March 10 2025 is a Monday in EDT (UTC-4)
	tests := []struct {
		name string
		at   time.Time
		want MarketSession
	}{
		{name: "early morning", at: time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), want: SessionClosed},
		{name: "premarket", at: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), want: SessionPreMarket},
		{name: "open bell", at: time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC), want: SessionMarket},
		{name: "midday", at: time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), want: SessionMarket},
		{name: "close bell", at: time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC), want: SessionPostMarket},
		{name: "late evening", at: time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC), want: SessionClosed},
		{name: "saturday", at: time.Date(2025, 3, 8, 17, 0, 0, 0, time.UTC), want: SessionClosed},
		{name: "independence day", at: time.Date(2025, 7, 4, 15, 0, 0, 0, time.UTC), want: SessionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if nyse == nil || eastern.String() != "America/New_York" {
				t.Skip("exchange calendar not available")
			}
			assert.Equal(t, tt.want, SessionAt(tt.at))
		})
	}
}

func TestParseSessions(t *testing.T) {
	sessions, err := ParseSessions([]string{"Market", " premarket "})
	require.NoError(t, err)
	assert.Equal(t, []MarketSession{SessionMarket, SessionPreMarket}, sessions)

	_, err = ParseSessions([]string{"lunch"})
	assert.Error(t, err)

	sessions, err = ParseSessions(nil)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSessionActive(t *testing.T) {
	assert.True(t, sessionActive(SessionClosed, nil))
	assert.True(t, sessionActive(SessionMarket, []MarketSession{SessionPreMarket, SessionMarket}))
	assert.False(t, sessionActive(SessionPostMarket, []MarketSession{SessionMarket}))
}
