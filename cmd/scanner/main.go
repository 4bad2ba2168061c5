package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradion/volatility-signals/internal/api"
	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/data"
	"github.com/tradion/volatility-signals/internal/pubsub"
	"github.com/tradion/volatility-signals/internal/scanner"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting scanner service",
		logger.String("health_port", fmt.Sprintf("%d", cfg.Scanner.HealthCheckPort)),
		logger.String("provider", cfg.MarketData.Provider),
		logger.Int("worker_id", cfg.Scanner.WorkerID),
		logger.Int("total_workers", cfg.Scanner.TotalWorkers),
	)

	// Initialize Redis client
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	// Signal history is optional; signals are still published without it
	var history storage.SignalStorage
	pg, err := storage.NewPostgresSignalStorage(cfg.Database)
	if err != nil {
		logger.Warn("Signal history unavailable, signals will not be persisted",
			logger.ErrorField(err),
		)
	} else {
		history = pg
		defer pg.Close()
	}

	collector, err := data.NewCollectorFromConfig(data.NewSourceFactory(), cfg.MarketData, redisClient)
	if err != nil {
		logger.Fatal("Failed to initialize market data collector",
			logger.ErrorField(err),
		)
	}

	publisher := pubsub.NewStreamPublisher(redisClient, pubsub.StreamPublisherConfig{
		AnalysisStream: cfg.Scanner.AnalysisStream,
		SignalStream:   cfg.Scanner.SignalStream,
		SignalChannel:  cfg.Scanner.SignalChannel,
		Timeout:        cfg.Scanner.PublishTimeout,
	})
	emitter := scanner.NewSignalEmitter(publisher, history, scanner.SignalEmitterConfig{
		PublishTimeout: cfg.Scanner.PublishTimeout,
	})
	cooldown := scanner.NewRedisCooldown(redisClient, cfg.Scanner.SignalCooldown)

	processor := scanner.NewProcessor(collector,
		scanner.WithAnalysisStore(scanner.NewAnalysisStore(redisClient, cfg.Scanner.AnalysisTTL)),
		scanner.WithAnalysisPublisher(publisher),
		scanner.WithSignals(emitter, cooldown),
		scanner.WithSpreadProposals(cfg.Scanner.ProposeSpreads),
	)

	// Restrict this worker to its share of the universe
	partition, err := scanner.NewPartition(cfg.Scanner.WorkerID, cfg.Scanner.TotalWorkers)
	if err != nil {
		logger.Fatal("Invalid worker partition", logger.ErrorField(err))
	}
	symbols := partition.Filter(cfg.MarketData.Symbols)

	sessions, err := scanner.ParseSessions(cfg.Scanner.ActiveSessions)
	if err != nil {
		logger.Fatal("Invalid active sessions", logger.ErrorField(err))
	}

	loopConfig := scanner.DefaultScanLoopConfig()
	loopConfig.Symbols = symbols
	loopConfig.ScanInterval = cfg.Scanner.ScanInterval
	loopConfig.Concurrency = cfg.Scanner.Concurrency
	loopConfig.ActiveSessions = sessions
	scanLoop := scanner.NewScanLoop(loopConfig, processor)

	if len(symbols) == 0 {
		logger.Warn("No symbols assigned to this worker, scan loop not started")
	} else if err := scanLoop.Start(); err != nil {
		logger.Fatal("Failed to start scan loop", logger.ErrorField(err))
	}
	defer scanLoop.Stop()

	logger.Info("Scanner service started",
		logger.Any("symbols", symbols),
		logger.String("primary_source", collector.Primary()),
		logger.Duration("scan_interval", cfg.Scanner.ScanInterval),
	)

	// Setup health and metrics server
	var wg sync.WaitGroup
	checks := map[string]api.HealthCheck{"redis": redisClient.Ping}
	if pg != nil {
		checks["postgres"] = pg.Ping
	}
	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Scanner.HealthCheckPort),
		Handler:      setupHealthAndMetricsServer(scanLoop, emitter, cooldown, checks),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting health and metrics server",
			logger.Int("port", cfg.Scanner.HealthCheckPort),
		)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health and metrics server failed",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down scanner service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", logger.ErrorField(err))
	}

	wg.Wait()

	logger.Info("Scanner service stopped")
}

// setupHealthAndMetricsServer sets up HTTP endpoints for health checks,
// loop statistics and metrics
func setupHealthAndMetricsServer(
	scanLoop *scanner.ScanLoop,
	emitter *scanner.SignalEmitterImpl,
	cooldown *scanner.RedisCooldown,
	checks map[string]api.HealthCheck,
) *mux.Router {
	router := mux.NewRouter()
	health := api.NewHealthHandler(checks)

	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", health.Ready).Methods(http.MethodGet)
	router.HandleFunc("/live", health.Live).Methods(http.MethodGet)

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		loopStats := scanLoop.GetStats()
		emitterStats := emitter.GetStats()
		cooldownStats := cooldown.GetStats()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"running":   scanLoop.IsRunning(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"scan_loop": map[string]interface{}{
				"scan_cycles":        loopStats.ScanCycles,
				"skipped_cycles":     loopStats.SkippedCycles,
				"symbols_analyzed":   loopStats.SymbolsAnalyzed,
				"symbol_errors":      loopStats.SymbolErrors,
				"signals_emitted":    loopStats.SignalsEmitted,
				"signals_suppressed": loopStats.SignalsSuppressed,
				"avg_cycle_ms":       loopStats.AvgScanCycleTime.Milliseconds(),
				"max_cycle_ms":       loopStats.MaxScanCycleTime.Milliseconds(),
			},
			"emitter": map[string]interface{}{
				"signals_emitted":  emitterStats.SignalsEmitted,
				"signals_failed":   emitterStats.SignalsFailed,
				"history_failures": emitterStats.HistoryFailures,
			},
			"cooldown": map[string]interface{}{
				"checked":  cooldownStats.CooldownsChecked,
				"hit":      cooldownStats.CooldownsHit,
				"acquired": cooldownStats.CooldownsAcquired,
			},
		})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler())

	return router
}
