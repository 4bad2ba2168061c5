package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tradion/volatility-signals/internal/models"
)

var (
	// ErrNotFound is returned when a key or record does not exist
	ErrNotFound = errors.New("not found")
)

// SignalStorage defines the interface for signal history operations
type SignalStorage interface {
	// WriteSignal persists an emitted signal
	WriteSignal(ctx context.Context, signal *models.Signal) error

	// GetSignals retrieves signals with filtering options, newest first
	GetSignals(ctx context.Context, filter SignalFilter) ([]*models.Signal, error)

	// GetSignal retrieves a single signal by ID, or ErrNotFound
	GetSignal(ctx context.Context, signalID string) (*models.Signal, error)

	// Close closes the storage connection
	Close() error
}

// SignalFilter defines filtering options for signal queries
type SignalFilter struct {
	Symbol    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Stream operations
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error
	ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error)
	AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error

	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// SetNX sets key only if it does not exist and reports whether it was set
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	// GetJSON unmarshals the value at key into dest, or returns ErrNotFound
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error

	// List operations
	// AppendToList pushes the JSON-encoded value onto the tail of the list at
	// key, keeps only the newest maxLen entries and refreshes the TTL
	AppendToList(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error
	// ListRange returns the entries between start and stop inclusive;
	// negative indexes count from the tail as in LRANGE
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error)

	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}

// StreamMessage represents a message from a Redis stream
type StreamMessage struct {
	ID     string
	Stream string
	Values map[string]interface{}
}

// PubSubMessage represents a message from Redis pub/sub
type PubSubMessage struct {
	Channel string
	Message string
}
