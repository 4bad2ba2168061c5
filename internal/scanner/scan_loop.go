package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradion/volatility-signals/pkg/logger"
)

// ScanLoopConfig holds configuration for the scan loop
type ScanLoopConfig struct {
	Symbols       []string
	ScanInterval  time.Duration // How often to run a scan (default: 30 seconds)
	SymbolTimeout time.Duration // Maximum time for one symbol (default: 20 seconds)
	Concurrency   int           // Symbols processed in parallel (default: 4)

	// ActiveSessions limits scanning to these sessions; empty scans always
	ActiveSessions []MarketSession
}

// DefaultScanLoopConfig returns default configuration
func DefaultScanLoopConfig() ScanLoopConfig {
	return ScanLoopConfig{
		ScanInterval:  30 * time.Second,
		SymbolTimeout: 20 * time.Second,
		Concurrency:   4,
	}
}

// ScanLoop refreshes the analysis of every configured symbol on an interval
type ScanLoop struct {
	config    ScanLoopConfig
	processor *Processor
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	stats     ScanLoopStats
	now       func() time.Time
}

// ScanLoopStats holds statistics about the scan loop
type ScanLoopStats struct {
	ScanCycles        int64
	SkippedCycles     int64 // Cycles skipped outside the active sessions
	SymbolsAnalyzed   int64
	SymbolErrors      int64
	SignalsEmitted    int64
	SignalsSuppressed int64
	ScanCycleTime     time.Duration // Last scan cycle time
	MaxScanCycleTime  time.Duration // Maximum scan cycle time observed
	MinScanCycleTime  time.Duration // Minimum scan cycle time observed
	AvgScanCycleTime  time.Duration // Average scan cycle time
	ScanCycleTimeSum  time.Duration // Sum of all scan cycle times (for average calculation)
	mu                sync.RWMutex
}

// NewScanLoop creates a new scan loop
func NewScanLoop(config ScanLoopConfig, processor *Processor) *ScanLoop {
	if processor == nil {
		panic("processor cannot be nil")
	}
	defaults := DefaultScanLoopConfig()
	if config.ScanInterval <= 0 {
		config.ScanInterval = defaults.ScanInterval
	}
	if config.SymbolTimeout <= 0 {
		config.SymbolTimeout = defaults.SymbolTimeout
	}
	if config.Concurrency < 1 {
		config.Concurrency = defaults.Concurrency
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ScanLoop{
		config:    config,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
		stats: ScanLoopStats{
			MinScanCycleTime: time.Hour, // Initialize to large value
		},
	}
}

// Start starts the scan loop
func (sl *ScanLoop) Start() error {
	sl.mu.Lock()
	if sl.running {
		sl.mu.Unlock()
		return fmt.Errorf("scan loop is already running")
	}
	if len(sl.config.Symbols) == 0 {
		sl.mu.Unlock()
		return fmt.Errorf("scan loop has no symbols")
	}
	sl.running = true
	sl.mu.Unlock()

	logger.Info("Starting scan loop",
		logger.Duration("scan_interval", sl.config.ScanInterval),
		logger.Int("symbols", len(sl.config.Symbols)),
	)

	sl.wg.Add(1)
	go sl.run()

	return nil
}

// Stop stops the scan loop and waits for the current cycle to finish
func (sl *ScanLoop) Stop() {
	sl.mu.Lock()
	if !sl.running {
		sl.mu.Unlock()
		return
	}
	sl.running = false
	sl.mu.Unlock()

	logger.Info("Stopping scan loop")
	sl.cancel()
	sl.wg.Wait()
	logger.Info("Scan loop stopped")
}

// IsRunning returns whether the scan loop is running
func (sl *ScanLoop) IsRunning() bool {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.running
}

// GetStats returns current scan loop statistics
func (sl *ScanLoop) GetStats() ScanLoopStats {
	sl.stats.mu.RLock()
	defer sl.stats.mu.RUnlock()

	avgTime := time.Duration(0)
	if sl.stats.ScanCycles > 0 {
		avgTime = sl.stats.ScanCycleTimeSum / time.Duration(sl.stats.ScanCycles)
	}

	return ScanLoopStats{
		ScanCycles:        sl.stats.ScanCycles,
		SkippedCycles:     atomic.LoadInt64(&sl.stats.SkippedCycles),
		SymbolsAnalyzed:   atomic.LoadInt64(&sl.stats.SymbolsAnalyzed),
		SymbolErrors:      atomic.LoadInt64(&sl.stats.SymbolErrors),
		SignalsEmitted:    atomic.LoadInt64(&sl.stats.SignalsEmitted),
		SignalsSuppressed: atomic.LoadInt64(&sl.stats.SignalsSuppressed),
		ScanCycleTime:     sl.stats.ScanCycleTime,
		MaxScanCycleTime:  sl.stats.MaxScanCycleTime,
		MinScanCycleTime:  sl.stats.MinScanCycleTime,
		AvgScanCycleTime:  avgTime,
	}
}

// run is the main scan loop
func (sl *ScanLoop) run() {
	defer sl.wg.Done()

	ticker := time.NewTicker(sl.config.ScanInterval)
	defer ticker.Stop()

	// Run initial scan immediately
	sl.Scan(sl.ctx)

	for {
		select {
		case <-sl.ctx.Done():
			return
		case <-ticker.C:
			sl.Scan(sl.ctx)
		}
	}
}

// Scan performs a single scan cycle over all symbols. A failing symbol is
// logged and does not stop the others.
func (sl *ScanLoop) Scan(ctx context.Context) {
	if session := SessionAt(sl.now()); !sessionActive(session, sl.config.ActiveSessions) {
		atomic.AddInt64(&sl.stats.SkippedCycles, 1)
		logger.Debug("Outside active sessions, skipping scan",
			logger.String("session", string(session)),
		)
		return
	}

	startTime := time.Now()
	traceID := logger.NewTraceID()
	ctx = logger.WithTraceID(ctx, traceID)

	defer func() {
		scanTime := time.Since(startTime)
		sl.updateStats(scanTime)
		logger.ScanCycleDuration.Observe(scanTime.Seconds())

		if scanTime > sl.config.ScanInterval {
			logger.Warn("Scan cycle exceeded scan interval",
				logger.String("trace_id", traceID),
				logger.Duration("scan_time", scanTime),
				logger.Duration("interval", sl.config.ScanInterval),
			)
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(sl.config.Concurrency)

	for _, symbol := range sl.config.Symbols {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sl.scanSymbol(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()
}

func (sl *ScanLoop) scanSymbol(ctx context.Context, symbol string) {
	symbolCtx, cancel := context.WithTimeout(ctx, sl.config.SymbolTimeout)
	defer cancel()

	outcome, err := sl.processor.Process(symbolCtx, symbol)
	if err != nil {
		atomic.AddInt64(&sl.stats.SymbolErrors, 1)
		logger.ErrorsTotal.WithLabelValues("scanner", "analysis").Inc()
		logger.WithContext(ctx).Error("Failed to analyze symbol",
			logger.Symbol(symbol),
			logger.ErrorField(err),
		)
		return
	}

	atomic.AddInt64(&sl.stats.SymbolsAnalyzed, 1)
	if outcome.Signal != nil {
		atomic.AddInt64(&sl.stats.SignalsEmitted, 1)
	}
	if outcome.Suppressed {
		atomic.AddInt64(&sl.stats.SignalsSuppressed, 1)
	}

	logger.WithContext(ctx).Debug("Symbol analyzed",
		logger.Symbol(symbol),
		logger.String("state", string(outcome.Analysis.State)),
		logger.String("source", outcome.Inputs.Source),
	)
}

// updateStats updates scan loop statistics
func (sl *ScanLoop) updateStats(scanTime time.Duration) {
	sl.stats.mu.Lock()
	defer sl.stats.mu.Unlock()

	sl.stats.ScanCycles++
	sl.stats.ScanCycleTime = scanTime
	sl.stats.ScanCycleTimeSum += scanTime

	if scanTime > sl.stats.MaxScanCycleTime {
		sl.stats.MaxScanCycleTime = scanTime
	}

	if scanTime < sl.stats.MinScanCycleTime {
		sl.stats.MinScanCycleTime = scanTime
	}
}
