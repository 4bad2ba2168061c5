package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tradion/volatility-signals/internal/models"
)

// MockSignalStorage is a mock implementation of SignalStorage for testing
type MockSignalStorage struct {
	mu       sync.Mutex
	Signals  []*models.Signal
	WriteErr error
	GetErr   error
}

func (m *MockSignalStorage) WriteSignal(ctx context.Context, signal *models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Signals = append(m.Signals, signal)
	return nil
}

func (m *MockSignalStorage) GetSignals(ctx context.Context, filter SignalFilter) ([]*models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	result := make([]*models.Signal, 0, len(m.Signals))
	for _, signal := range m.Signals {
		if filter.Symbol != "" && signal.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartTime.IsZero() && signal.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && signal.Timestamp.After(filter.EndTime) {
			continue
		}
		result = append(result, signal)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })

	// Apply limit and offset
	start := filter.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + filter.Limit
	if end > len(result) {
		end = len(result)
	}
	if filter.Limit > 0 {
		return result[start:end], nil
	}
	return result[start:], nil
}

func (m *MockSignalStorage) GetSignal(ctx context.Context, signalID string) (*models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, signal := range m.Signals {
		if signal.ID == signalID {
			return signal, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockSignalStorage) Close() error {
	return nil
}

// MockRedisClient is an in-memory RedisClient for testing. TTLs are recorded
// but never expire keys; tests delete keys to simulate expiry.
type MockRedisClient struct {
	mu           sync.Mutex
	Data         map[string]string
	Lists        map[string][]string
	TTLs         map[string]time.Duration
	StreamData   []StreamMessage
	PubSubData   []PubSubMessage
	Acked        []string
	PublishErr   error
	GetErr       error
	SetErr       error
	SubscribeErr error
	ConsumeErr   error
	PingErr      error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data:  make(map[string]string),
		Lists: make(map[string][]string),
		TTLs:  make(map[string]time.Duration),
	}
}

// PublishToStream records the message JSON-encoded under key, like the real client
func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.StreamData = append(m.StreamData, StreamMessage{
		ID:     strconv.Itoa(len(m.StreamData)+1) + "-0",
		Stream: stream,
		Values: map[string]interface{}{key: string(jsonData)},
	})
	return nil
}

// StreamMessages returns the recorded messages for one stream
func (m *MockRedisClient) StreamMessages(stream string) []StreamMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StreamMessage
	for _, msg := range m.StreamData {
		if msg.Stream == stream {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockRedisClient) ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error) {
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	messages := m.StreamMessages(stream)
	ch := make(chan StreamMessage, len(messages))
	for _, msg := range messages {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, id)
	return nil
}

// AckedIDs returns the acknowledged stream message IDs
func (m *MockRedisClient) AckedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Acked...)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return false, m.SetErr
	}
	if _, exists := m.Data[key]; exists {
		return false, nil
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return true, nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return m.GetErr
	}
	value, exists := m.Data[key]
	if !exists {
		return ErrNotFound
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.Lists, key)
	delete(m.TTLs, key)
	return nil
}

func (m *MockRedisClient) AppendToList(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	list := append(m.Lists[key], string(jsonData))
	if maxLen > 0 && int64(len(list)) > maxLen {
		list = list[int64(len(list))-maxLen:]
	}
	m.Lists[key] = list
	if ttl > 0 {
		m.TTLs[key] = ttl
	}
	return nil
}

// ListRange follows LRANGE index rules, including negative indexes
func (m *MockRedisClient) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	list := m.Lists[key]
	n := int64(len(list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if n == 0 || start > stop {
		return []string{}, nil
	}
	return append([]string(nil), list[start:stop+1]...), nil
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.PubSubData = append(m.PubSubData, PubSubMessage{Channel: channel, Message: string(jsonData)})
	return nil
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error) {
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan PubSubMessage, len(m.PubSubData))
	for _, msg := range m.PubSubData {
		for _, c := range channels {
			if msg.Channel == c {
				ch <- msg
				break
			}
		}
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockRedisClient) Close() error {
	return nil
}
