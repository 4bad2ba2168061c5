package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// SignalPublisher delivers signals to live consumers
type SignalPublisher interface {
	PublishSignal(ctx context.Context, signal *models.Signal) error
}

// SignalEmitterConfig holds configuration for the signal emitter
type SignalEmitterConfig struct {
	PublishTimeout time.Duration
}

// SignalEmitterImpl publishes signals and records them in signal history
type SignalEmitterImpl struct {
	config    SignalEmitterConfig
	publisher SignalPublisher
	history   storage.SignalStorage
	stats     SignalEmitterStats
}

// SignalEmitterStats holds statistics about signal emission
type SignalEmitterStats struct {
	SignalsEmitted  int64
	SignalsFailed   int64
	HistoryFailures int64
	LastSignalTime  time.Time
	mu              sync.RWMutex
}

// NewSignalEmitter creates a new signal emitter. history may be nil.
func NewSignalEmitter(publisher SignalPublisher, history storage.SignalStorage, config SignalEmitterConfig) *SignalEmitterImpl {
	if publisher == nil {
		panic("signal publisher cannot be nil")
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}

	return &SignalEmitterImpl{
		config:    config,
		publisher: publisher,
		history:   history,
	}
}

// EmitSignal fills in ID, timestamp and trace ID when missing, publishes the
// signal and writes it to history. A history write failure is logged but does
// not fail the emission.
func (e *SignalEmitterImpl) EmitSignal(ctx context.Context, signal *models.Signal) error {
	if signal == nil {
		return fmt.Errorf("signal cannot be nil")
	}

	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}
	if signal.Timestamp.IsZero() {
		signal.Timestamp = time.Now()
	}
	if signal.TraceID == "" {
		signal.TraceID = logger.GetTraceID(ctx)
		if signal.TraceID == "" {
			signal.TraceID = logger.NewTraceID()
		}
	}

	if err := signal.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, e.config.PublishTimeout)
	defer cancel()

	if err := e.publisher.PublishSignal(pubCtx, signal); err != nil {
		e.incrementFailed()
		return fmt.Errorf("failed to publish signal: %w", err)
	}

	if e.history != nil {
		if err := e.history.WriteSignal(pubCtx, signal); err != nil {
			e.incrementHistoryFailures()
			logger.WithContext(ctx).Error("Failed to write signal history",
				logger.ErrorField(err),
				logger.String("signal_id", signal.ID),
				logger.Symbol(signal.Symbol),
			)
		}
	}

	e.incrementEmitted()
	logger.WithContext(ctx).Info("Signal emitted",
		logger.String("signal_id", signal.ID),
		logger.Symbol(signal.Symbol),
		logger.Float64("price", signal.Price),
	)
	return nil
}

// GetStats returns current signal emitter statistics
func (e *SignalEmitterImpl) GetStats() SignalEmitterStats {
	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()

	return SignalEmitterStats{
		SignalsEmitted:  e.stats.SignalsEmitted,
		SignalsFailed:   e.stats.SignalsFailed,
		HistoryFailures: e.stats.HistoryFailures,
		LastSignalTime:  e.stats.LastSignalTime,
	}
}

func (e *SignalEmitterImpl) incrementEmitted() {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.stats.SignalsEmitted++
	e.stats.LastSignalTime = time.Now()
}

func (e *SignalEmitterImpl) incrementFailed() {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.stats.SignalsFailed++
}

func (e *SignalEmitterImpl) incrementHistoryFailures() {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.stats.HistoryFailures++
}
