package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradion/volatility-signals/internal/api"
	"github.com/tradion/volatility-signals/internal/auth"
	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/data"
	"github.com/tradion/volatility-signals/internal/pubsub"
	"github.com/tradion/volatility-signals/internal/scanner"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/internal/wsgateway"
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

	authManager := auth.NewManager(cfg.API.JWTSecret, cfg.API.JWTIssuer)

	logger.Info("Starting REST API service",
		logger.String("port", fmt.Sprintf("%d", cfg.API.Port)),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
		logger.Bool("auth_enabled", authManager.Enabled()),
	)

	// Initialize Redis client
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	checks := map[string]api.HealthCheck{"redis": redisClient.Ping}

	// Signal history endpoints are only served when Postgres is reachable
	var signals storage.SignalStorage
	pg, err := storage.NewPostgresSignalStorage(cfg.Database)
	if err != nil {
		logger.Warn("Signal history unavailable, /api/v1/signals disabled",
			logger.ErrorField(err),
		)
	} else {
		signals = pg
		checks["postgres"] = pg.Ping
		defer pg.Close()
	}

	// On-demand refresh stores and streams the analysis but never emits
	// signals; emission stays with the scanner and its cooldown
	analyses := scanner.NewAnalysisStore(redisClient, cfg.Scanner.AnalysisTTL)
	var refresher api.Refresher
	collector, err := data.NewCollectorFromConfig(data.NewSourceFactory(), cfg.MarketData, redisClient)
	if err != nil {
		logger.Warn("Market data unavailable, analysis refresh disabled",
			logger.ErrorField(err),
		)
	} else {
		refresher = scanner.NewProcessor(collector,
			scanner.WithAnalysisStore(analyses),
			scanner.WithAnalysisPublisher(pubsub.NewStreamPublisher(redisClient, pubsub.StreamPublisherConfig{
				AnalysisStream: cfg.Scanner.AnalysisStream,
				Timeout:        cfg.Scanner.PublishTimeout,
			})),
		)
	}

	// WebSocket hub pushes streamed analyses and SELL signals to clients
	hub := wsgateway.NewHub(cfg.WSGateway, redisClient)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start WebSocket hub",
			logger.ErrorField(err),
		)
	}
	defer hub.Stop()

	router := api.NewRouter(api.RouterConfig{
		Symbols:        cfg.MarketData.Symbols,
		Analyses:       analyses,
		Refresher:      refresher,
		RefreshTimeout: cfg.API.RefreshTimeout,
		Signals:        signals,
		Auth:           authManager,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		AllowedOrigins: cfg.API.AllowedOrigins,
		HealthChecks:   checks,
		WebSocket:      wsgateway.NewHandler(hub, cfg.API.AllowedOrigins),
	})

	// Start HTTP server; websocket connections manage their own deadlines
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down REST API service")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("REST API service stopped")
}
