package wsgateway

import (
	"encoding/json"
	"fmt"

	"github.com/tradion/volatility-signals/pkg/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client to server
const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
)

// Server to client
const (
	MessageTypePong     MessageType = "pong"
	MessageTypeAnalysis MessageType = "analysis"
	MessageTypeSignal   MessageType = "signal"
	MessageTypeSuccess  MessageType = "success"
	MessageTypeError    MessageType = "error"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    string          `json:"type"`
	Symbol  string          `json:"symbol,omitempty"`
	Symbols []string        `json:"symbols,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// symbols returns the symbols named by either field
func (m *ClientMessage) symbols() []string {
	if m.Symbol != "" {
		return append([]string{m.Symbol}, m.Symbols...)
	}
	return m.Symbols
}

// HandleClientMessage handles a message from the client
func (c *Connection) HandleClientMessage(msg *ClientMessage) error {
	switch MessageType(msg.Type) {
	case MessageTypeSubscribe:
		symbols := msg.symbols()
		if len(symbols) == 0 {
			return c.SendError("invalid_request", "symbol or symbols field required")
		}
		c.Subscribe(symbols...)
		logger.Debug("Client subscribed",
			logger.String("connection_id", c.ID),
			logger.String("user_id", c.UserID),
			logger.Int("count", len(symbols)),
		)
		return c.SendSuccess("subscribed", map[string]interface{}{"symbols": c.Subscriptions()})

	case MessageTypeUnsubscribe:
		symbols := msg.symbols()
		if len(symbols) == 0 {
			return c.SendError("invalid_request", "symbol or symbols field required")
		}
		c.Unsubscribe(symbols...)
		logger.Debug("Client unsubscribed",
			logger.String("connection_id", c.ID),
			logger.String("user_id", c.UserID),
			logger.Int("count", len(symbols)),
		)
		return c.SendSuccess("unsubscribed", map[string]interface{}{"symbols": c.Subscriptions()})

	case MessageTypePing:
		return c.SendPong()

	default:
		return c.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}
