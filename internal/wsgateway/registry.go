package wsgateway

import (
	"errors"
	"sync"
)

// ErrTooManyConnections is returned when the registry is at capacity
var ErrTooManyConnections = errors.New("too many connections")

// ConnectionRegistry manages all active WebSocket connections
type ConnectionRegistry struct {
	connections    map[string]*Connection            // connection_id -> connection
	byUser         map[string]map[string]*Connection // user_id -> connection_id -> connection
	maxConnections int
	mu             sync.RWMutex
}

// NewConnectionRegistry creates a registry; maxConnections <= 0 is unlimited
func NewConnectionRegistry(maxConnections int) *ConnectionRegistry {
	return &ConnectionRegistry{
		connections:    make(map[string]*Connection),
		byUser:         make(map[string]map[string]*Connection),
		maxConnections: maxConnections,
	}
}

// Add adds a connection, or returns ErrTooManyConnections at capacity
func (r *ConnectionRegistry) Add(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxConnections > 0 && len(r.connections) >= r.maxConnections {
		return ErrTooManyConnections
	}

	r.connections[conn.ID] = conn
	if r.byUser[conn.UserID] == nil {
		r.byUser[conn.UserID] = make(map[string]*Connection)
	}
	r.byUser[conn.UserID][conn.ID] = conn
	return nil
}

// Remove removes a connection and reports whether it was registered
func (r *ConnectionRegistry) Remove(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[connectionID]
	if !exists {
		return false
	}
	delete(r.connections, connectionID)

	if userConns, exists := r.byUser[conn.UserID]; exists {
		delete(userConns, connectionID)
		if len(userConns) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	return true
}

// Get retrieves a connection by ID
func (r *ConnectionRegistry) Get(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.connections[connectionID]
	return conn, exists
}

// GetAll retrieves all connections
func (r *ConnectionRegistry) GetAll() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		connections = append(connections, conn)
	}
	return connections
}

// Subscribers returns the connections that should receive updates for symbol
func (r *ConnectionRegistry) Subscribers(symbol string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		if conn.ShouldReceive(symbol) {
			out = append(out, conn)
		}
	}
	return out
}

// Count returns the total number of connections
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CountByUser returns the number of connections for a user
func (r *ConnectionRegistry) CountByUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}
