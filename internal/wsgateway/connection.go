package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradion/volatility-signals/internal/models"
)

const sendBufferSize = 256

var (
	// ErrConnectionClosed is returned when sending on a closed connection
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a slow client's buffer is full; the
	// message is dropped
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection represents a WebSocket connection with a client
type Connection struct {
	ID            string
	UserID        string
	Conn          *websocket.Conn
	Send          chan []byte
	subscriptions map[string]bool // symbol -> subscribed
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	lastPong      time.Time
	createdAt     time.Time
}

// NewConnection creates a new WebSocket connection. conn may be nil in tests.
func NewConnection(id string, userID string, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:            id,
		UserID:        userID,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
		createdAt:     time.Now(),
		lastPong:      time.Now(),
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Subscribe subscribes to updates for the given symbols
func (c *Connection) Subscribe(symbols ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		if s = normalizeSymbol(s); s != "" {
			c.subscriptions[s] = true
		}
	}
}

// Unsubscribe unsubscribes from updates for the given symbols
func (c *Connection) Unsubscribe(symbols ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		delete(c.subscriptions, normalizeSymbol(s))
	}
}

// IsSubscribed checks if the connection is explicitly subscribed to a symbol
func (c *Connection) IsSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[normalizeSymbol(symbol)]
}

// Subscriptions returns the subscribed symbols, sorted
func (c *Connection) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subscriptions))
	for s := range c.subscriptions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ShouldReceive reports whether updates for symbol go to this connection.
// A connection without subscriptions receives every symbol.
func (c *Connection) ShouldReceive(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[normalizeSymbol(symbol)]
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection; safe to call more than once
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// SendAnalysis queues an analysis update
func (c *Connection) SendAnalysis(analysis *models.SymbolAnalysis) error {
	return c.enqueue(ServerMessage{Type: string(MessageTypeAnalysis), Data: analysis})
}

// SendSignal queues a SELL signal
func (c *Connection) SendSignal(signal *models.Signal) error {
	return c.enqueue(ServerMessage{Type: string(MessageTypeSignal), Data: signal})
}

// SendError queues an error message
func (c *Connection) SendError(code string, message string) error {
	return c.enqueue(ServerMessage{Type: string(MessageTypeError), Code: code, Message: message})
}

// SendSuccess queues an acknowledgement of a client action
func (c *Connection) SendSuccess(action string, data interface{}) error {
	return c.enqueue(ServerMessage{
		Type: string(MessageTypeSuccess),
		Data: map[string]interface{}{
			"action": action,
			"data":   data,
		},
	})
}

// SendPong queues a pong reply
func (c *Connection) SendPong() error {
	return c.enqueue(ServerMessage{Type: string(MessageTypePong)})
}

// enqueue never blocks: a full buffer drops the message
func (c *Connection) enqueue(message ServerMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}
