package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradion/volatility-signals/internal/auth"
	"github.com/tradion/volatility-signals/internal/storage"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a health handler running checks on /ready
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Live handles GET /live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready handles GET /ready; any failing check makes the service not ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	respondWithJSON(w, status, body)
}

// RouterConfig wires the API's dependencies
type RouterConfig struct {
	Symbols        []string
	Analyses       AnalysisReader
	Refresher      Refresher // optional
	RefreshTimeout time.Duration
	Signals        storage.SignalStorage
	Auth           *auth.Manager
	RateLimitRPS   int
	AllowedOrigins []string
	HealthChecks   map[string]HealthCheck
	WebSocket      http.Handler // optional, served on /ws
}

// NewRouter builds the HTTP router with the full middleware chain
func NewRouter(cfg RouterConfig) *mux.Router {
	if cfg.Auth == nil {
		cfg.Auth = auth.NewManager("", "")
	}

	router := mux.NewRouter()
	chain := ChainMiddleware(
		RecoveryMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(cfg.AllowedOrigins),
		RateLimitMiddleware(NewRateLimiter(cfg.RateLimitRPS)),
		AuthMiddleware(cfg.Auth),
	)
	router.Use(mux.MiddlewareFunc(chain))

	health := NewHealthHandler(cfg.HealthChecks)
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", health.Ready).Methods(http.MethodGet)
	router.HandleFunc("/live", health.Live).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if cfg.WebSocket != nil {
		router.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	v1 := router.PathPrefix("/api/v1").Subrouter()
	methods := []string{http.MethodGet, http.MethodOptions}

	symbols := NewSymbolHandler(cfg.Symbols)
	v1.HandleFunc("/symbols", symbols.ListSymbols).Methods(methods...)

	analyses := NewAnalysisHandler(cfg.Symbols, cfg.Analyses, cfg.Refresher, cfg.RefreshTimeout)
	v1.HandleFunc("/analysis", analyses.ListAnalyses).Methods(methods...)
	v1.HandleFunc("/analysis/{symbol}", analyses.GetAnalysis).Methods(methods...)

	if cfg.Signals != nil {
		signals := NewSignalHandler(cfg.Signals)
		v1.HandleFunc("/signals", signals.ListSignals).Methods(methods...)
		v1.HandleFunc("/signals/{id}", signals.GetSignal).Methods(methods...)
	}

	return router
}
