package scanner

import (
	"context"
	"time"

	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
)

const analysisKeyPrefix = "analysis:"

// StoredAnalysis is the latest analysis kept per symbol for readers such as the API
type StoredAnalysis struct {
	Analysis *models.SymbolAnalysis `json:"analysis"`
	Price    float64                `json:"price"`
	Source   string                 `json:"source"`
}

// AnalysisStore keeps the latest analysis per symbol in Redis
type AnalysisStore struct {
	redis storage.RedisClient
	ttl   time.Duration
}

// NewAnalysisStore creates a new analysis store. A non-positive ttl keeps
// entries until overwritten.
func NewAnalysisStore(redis storage.RedisClient, ttl time.Duration) *AnalysisStore {
	return &AnalysisStore{redis: redis, ttl: ttl}
}

// AnalysisKey returns the Redis key holding a symbol's latest analysis
func AnalysisKey(symbol string) string {
	return analysisKeyPrefix + symbol
}

// Save overwrites the symbol's latest analysis
func (s *AnalysisStore) Save(ctx context.Context, stored *StoredAnalysis) error {
	return s.redis.Set(ctx, AnalysisKey(stored.Analysis.Symbol), stored, s.ttl)
}

// Latest returns the symbol's latest analysis, or storage.ErrNotFound
func (s *AnalysisStore) Latest(ctx context.Context, symbol string) (*StoredAnalysis, error) {
	var stored StoredAnalysis
	if err := s.redis.GetJSON(ctx, AnalysisKey(symbol), &stored); err != nil {
		return nil, err
	}
	if stored.Analysis == nil {
		return nil, storage.ErrNotFound
	}
	return &stored, nil
}
