package wsgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/pubsub"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// Hub fans analyses from the analysis stream and signals from the signal
// channel out to websocket connections
type Hub struct {
	config   config.WSGatewayConfig
	registry *ConnectionRegistry
	redis    storage.RedisClient
	consumer string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	stats    HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal  int64
	ConnectionsActive int64
	AnalysesReceived  int64
	SignalsReceived   int64
	MessagesSent      int64
	MessagesDropped   int64
	LastUpdateTime    time.Time
	mu                sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(cfg config.WSGatewayConfig, redis storage.RedisClient) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:   cfg,
		registry: NewConnectionRegistry(cfg.MaxConnections),
		redis:    redis,
		consumer: "ws-gateway-" + uuid.NewString()[:8],
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts consuming updates and monitoring connections
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.String("analysis_stream", h.config.AnalysisStream),
		logger.String("consumer_group", h.config.ConsumerGroup),
		logger.String("signal_channel", h.config.SignalChannel),
	)

	analyses, err := h.redis.ConsumeFromStream(h.ctx, h.config.AnalysisStream, h.config.ConsumerGroup, h.consumer)
	if err != nil {
		h.setRunning(false)
		return fmt.Errorf("consume %s: %w", h.config.AnalysisStream, err)
	}
	h.wg.Add(1)
	go h.consumeAnalyses(analyses)

	if h.config.SignalChannel != "" {
		signals, err := h.redis.Subscribe(h.ctx, h.config.SignalChannel)
		if err != nil {
			h.cancel()
			h.wg.Wait()
			h.setRunning(false)
			return fmt.Errorf("subscribe %s: %w", h.config.SignalChannel, err)
		}
		h.wg.Add(1)
		go h.consumeSignals(signals)
	}

	h.wg.Add(1)
	go h.monitorConnections()

	return nil
}

// Stop stops the hub and closes every connection
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	for _, conn := range h.registry.GetAll() {
		h.Unregister(conn)
	}
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) setRunning(running bool) {
	h.mu.Lock()
	h.running = running
	h.mu.Unlock()
}

// Register registers a new connection and starts its pumps
func (h *Hub) Register(conn *Connection) error {
	if err := h.registry.Add(conn); err != nil {
		return err
	}
	h.stats.mu.Lock()
	h.stats.ConnectionsTotal++
	h.stats.mu.Unlock()
	logger.WSConnectionsActive.Inc()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("user_id", conn.UserID),
		logger.Int("total_connections", h.registry.Count()),
	)

	if conn.Conn != nil {
		h.wg.Add(2)
		go h.writePump(conn)
		go h.readPump(conn)
	}
	return nil
}

// Unregister removes a connection and closes it
func (h *Hub) Unregister(conn *Connection) {
	if h.registry.Remove(conn.ID) {
		logger.WSConnectionsActive.Dec()
		logger.Info("Connection unregistered",
			logger.String("connection_id", conn.ID),
			logger.String("user_id", conn.UserID),
			logger.Int("total_connections", h.registry.Count()),
		)
	}
	conn.Close()
}

// consumeAnalyses broadcasts analyses from the stream until the hub stops
func (h *Hub) consumeAnalyses(messages <-chan storage.StreamMessage) {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-messages:
			if !ok {
				logger.Warn("Analysis stream closed", logger.String("stream", h.config.AnalysisStream))
				return
			}

			analysis, err := decodeAnalysis(msg)
			if err != nil {
				logger.Error("Failed to decode analysis",
					logger.ErrorField(err),
					logger.String("message_id", msg.ID),
				)
			} else {
				h.stats.mu.Lock()
				h.stats.AnalysesReceived++
				h.stats.LastUpdateTime = time.Now()
				h.stats.mu.Unlock()
				h.BroadcastAnalysis(analysis)
			}

			// Undecodable messages are acknowledged too
			ackCtx, ackCancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = h.redis.AcknowledgeMessage(ackCtx, h.config.AnalysisStream, h.config.ConsumerGroup, msg.ID)
			ackCancel()
			if err != nil {
				logger.Warn("Failed to acknowledge analysis message",
					logger.ErrorField(err),
					logger.String("message_id", msg.ID),
				)
			}
		}
	}
}

// consumeSignals broadcasts signals from the pub/sub channel until the hub stops
func (h *Hub) consumeSignals(messages <-chan storage.PubSubMessage) {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg, ok := <-messages:
			if !ok {
				logger.Warn("Signal channel closed", logger.String("channel", h.config.SignalChannel))
				return
			}

			var signal models.Signal
			if err := json.Unmarshal([]byte(msg.Message), &signal); err != nil {
				logger.Error("Failed to decode signal", logger.ErrorField(err))
				continue
			}

			h.stats.mu.Lock()
			h.stats.SignalsReceived++
			h.stats.LastUpdateTime = time.Now()
			h.stats.mu.Unlock()
			h.BroadcastSignal(&signal)
		}
	}
}

// BroadcastAnalysis queues an analysis to every connection subscribed to its symbol
func (h *Hub) BroadcastAnalysis(analysis *models.SymbolAnalysis) {
	h.broadcast(analysis.Symbol, MessageTypeAnalysis, func(c *Connection) error {
		return c.SendAnalysis(analysis)
	})
}

// BroadcastSignal queues a signal to every connection subscribed to its symbol
func (h *Hub) BroadcastSignal(signal *models.Signal) {
	h.broadcast(signal.Symbol, MessageTypeSignal, func(c *Connection) error {
		return c.SendSignal(signal)
	})
}

func (h *Hub) broadcast(symbol string, kind MessageType, send func(*Connection) error) {
	connections := h.registry.Subscribers(symbol)
	sent, dropped := 0, 0

	for _, conn := range connections {
		if err := send(conn); err != nil {
			dropped++
			logger.Debug("Dropped update for connection",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
			continue
		}
		sent++
	}

	h.stats.mu.Lock()
	h.stats.MessagesSent += int64(sent)
	h.stats.MessagesDropped += int64(dropped)
	h.stats.mu.Unlock()
	logger.WSMessagesSent.WithLabelValues(string(kind)).Add(float64(sent))
	if dropped > 0 {
		logger.WSMessagesDropped.WithLabelValues(string(kind)).Add(float64(dropped))
	}

	logger.Debug("Broadcast update",
		logger.String("type", string(kind)),
		logger.Symbol(symbol),
		logger.Int("sent", sent),
		logger.Int("dropped", dropped),
	)
}

func decodeAnalysis(msg storage.StreamMessage) (*models.SymbolAnalysis, error) {
	value, ok := msg.Values[pubsub.AnalysisField]
	if !ok {
		return nil, fmt.Errorf("%s field not found in message", pubsub.AnalysisField)
	}

	raw, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s field is not a string", pubsub.AnalysisField)
	}

	var analysis models.SymbolAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	if analysis.Symbol == "" {
		return nil, models.ErrInvalidSymbol
	}
	return &analysis, nil
}

// writePump pumps queued messages to the WebSocket connection
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			conn.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-conn.Done():
			return

		case message := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles client messages until the connection fails
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadLimit(4096)
	conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			return
		}
		conn.UpdateLastPong()

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			conn.SendError("invalid_message", "failed to parse message")
			continue
		}

		if err := conn.HandleClientMessage(&clientMsg); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// monitorConnections removes connections that stopped answering pings
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			staleThreshold := h.config.ReadTimeout * 2

			for _, conn := range h.registry.GetAll() {
				if conn.Conn == nil {
					continue
				}
				idle := now.Sub(conn.GetLastPong())
				if idle > staleThreshold {
					logger.Info("Removing stale connection",
						logger.String("connection_id", conn.ID),
						logger.String("user_id", conn.UserID),
						logger.Duration("idle_time", idle),
					)
					h.Unregister(conn)
				}
			}
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	return HubStats{
		ConnectionsTotal:  h.stats.ConnectionsTotal,
		ConnectionsActive: int64(h.registry.Count()),
		AnalysesReceived:  h.stats.AnalysesReceived,
		SignalsReceived:   h.stats.SignalsReceived,
		MessagesSent:      h.stats.MessagesSent,
		MessagesDropped:   h.stats.MessagesDropped,
		LastUpdateTime:    h.stats.LastUpdateTime,
	}
}
