package wsgateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tradion/volatility-signals/internal/auth"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// Handler upgrades HTTP requests to websocket connections on the hub.
// Authentication happens upstream; the user ID is read from the request context.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. "*" in allowedOrigins, or an empty
// list, accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeHTTP handles GET /ws. An optional ?symbols=SPY,QQQ pre-subscribes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if limit := h.hub.config.MaxConnections; limit > 0 && h.hub.registry.Count() >= limit {
		http.Error(w, ErrTooManyConnections.Error(), http.StatusServiceUnavailable)
		return
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		userID = auth.AnonymousUser
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		logger.Debug("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}

	conn := NewConnection(uuid.NewString(), userID, ws)
	if symbols := r.URL.Query().Get("symbols"); symbols != "" {
		conn.Subscribe(strings.Split(symbols, ",")...)
	}

	if err := h.hub.Register(conn); err != nil {
		logger.Warn("Rejected websocket connection",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
	}
}
