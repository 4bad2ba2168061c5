package wsgateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradion/volatility-signals/internal/models"
)

// nextMessage pops one queued message
func nextMessage(t *testing.T, conn *Connection) ServerMessage {
	t.Helper()
	select {
	case raw := <-conn.Send:
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	default:
		t.Fatal("no message queued")
		return ServerMessage{}
	}
}

func TestConnection_SubscribeUnsubscribe(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)

	conn.Subscribe("spy", " qqq ", "")
	assert.True(t, conn.IsSubscribed("SPY"))
	assert.True(t, conn.IsSubscribed("qqq"))
	assert.Equal(t, []string{"QQQ", "SPY"}, conn.Subscriptions())

	conn.Unsubscribe("Spy")
	assert.False(t, conn.IsSubscribed("SPY"))
	assert.Equal(t, []string{"QQQ"}, conn.Subscriptions())
}

func TestConnection_ShouldReceive(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)

	assert.True(t, conn.ShouldReceive("AAPL"), "no subscriptions receives everything")

	conn.Subscribe("SPY")
	assert.True(t, conn.ShouldReceive("SPY"))
	assert.False(t, conn.ShouldReceive("QQQ"))
}

func TestConnection_SendAnalysis(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)

	require.NoError(t, conn.SendAnalysis(&models.SymbolAnalysis{Symbol: "SPY", State: models.StateWatch}))

	raw := <-conn.Send
	var msg struct {
		Type string                `json:"type"`
		Data models.SymbolAnalysis `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "analysis", msg.Type)
	assert.Equal(t, "SPY", msg.Data.Symbol)
	assert.Equal(t, models.StateWatch, msg.Data.State)
}

func TestConnection_SendBufferFull(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, conn.SendPong())
	}
	assert.ErrorIs(t, conn.SendPong(), ErrSendBufferFull)
}

func TestConnection_Close(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)
	conn.Close()
	conn.Close()

	select {
	case <-conn.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
	assert.ErrorIs(t, conn.SendPong(), ErrConnectionClosed)
}

func TestConnection_UpdateLastPong(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)
	conn.lastPong = time.Now().Add(-time.Hour)

	initial := conn.GetLastPong()
	conn.UpdateLastPong()
	assert.True(t, conn.GetLastPong().After(initial))
}

func TestConnection_HandleClientMessage(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil)

	require.NoError(t, conn.HandleClientMessage(&ClientMessage{Type: "subscribe", Symbol: "spy", Symbols: []string{"QQQ"}}))
	msg := nextMessage(t, conn)
	assert.Equal(t, "success", msg.Type)
	assert.Equal(t, []string{"QQQ", "SPY"}, conn.Subscriptions())

	require.NoError(t, conn.HandleClientMessage(&ClientMessage{Type: "unsubscribe", Symbols: []string{"QQQ"}}))
	assert.Equal(t, "success", nextMessage(t, conn).Type)
	assert.Equal(t, []string{"SPY"}, conn.Subscriptions())

	require.NoError(t, conn.HandleClientMessage(&ClientMessage{Type: "ping"}))
	assert.Equal(t, "pong", nextMessage(t, conn).Type)

	require.NoError(t, conn.HandleClientMessage(&ClientMessage{Type: "subscribe"}))
	msg = nextMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid_request", msg.Code)

	require.NoError(t, conn.HandleClientMessage(&ClientMessage{Type: "shout"}))
	assert.Equal(t, "unknown_message_type", nextMessage(t, conn).Code)
}
