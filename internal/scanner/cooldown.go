package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradion/volatility-signals/internal/storage"
)

const cooldownKeyPrefix = "cooldown:"

// Cooldown gates how often a SELL signal may be emitted per symbol
type Cooldown interface {
	// Acquire reports whether a signal may be emitted now and, if so,
	// starts the cooldown window
	Acquire(ctx context.Context, symbol string) (bool, error)
	// Release ends the window early, e.g. when emission failed
	Release(ctx context.Context, symbol string) error
}

// RedisCooldown keeps one expiring key per symbol, so the window is shared by
// every scanner instance using the same Redis
type RedisCooldown struct {
	redis  storage.RedisClient
	window time.Duration
	stats  CooldownStats
}

// CooldownStats holds statistics about cooldown checks
type CooldownStats struct {
	CooldownsChecked  int64
	CooldownsHit      int64 // Number of times cooldown prevented a signal
	CooldownsAcquired int64
	mu                sync.RWMutex
}

// NewRedisCooldown creates a cooldown with the given window. A non-positive
// window disables the cooldown.
func NewRedisCooldown(redis storage.RedisClient, window time.Duration) *RedisCooldown {
	return &RedisCooldown{
		redis:  redis,
		window: window,
	}
}

// CooldownKey returns the Redis key holding a symbol's cooldown
func CooldownKey(symbol string) string {
	return cooldownKeyPrefix + symbol
}

// Acquire sets the symbol's cooldown key if absent
func (c *RedisCooldown) Acquire(ctx context.Context, symbol string) (bool, error) {
	c.stats.mu.Lock()
	c.stats.CooldownsChecked++
	c.stats.mu.Unlock()

	if c.window <= 0 {
		return true, nil
	}

	acquired, err := c.redis.SetNX(ctx, CooldownKey(symbol), time.Now().UTC(), c.window)
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown for %s: %w", symbol, err)
	}

	c.stats.mu.Lock()
	if acquired {
		c.stats.CooldownsAcquired++
	} else {
		c.stats.CooldownsHit++
	}
	c.stats.mu.Unlock()

	return acquired, nil
}

// Release deletes the symbol's cooldown key
func (c *RedisCooldown) Release(ctx context.Context, symbol string) error {
	if c.window <= 0 {
		return nil
	}
	return c.redis.Delete(ctx, CooldownKey(symbol))
}

// GetStats returns current cooldown statistics
func (c *RedisCooldown) GetStats() CooldownStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return CooldownStats{
		CooldownsChecked:  c.stats.CooldownsChecked,
		CooldownsHit:      c.stats.CooldownsHit,
		CooldownsAcquired: c.stats.CooldownsAcquired,
	}
}
