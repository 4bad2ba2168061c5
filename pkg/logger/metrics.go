package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors",
		},
		[]string{"service", "error_type"},
	)

	// Analysis
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Completed symbol analyses by resulting state",
		},
		[]string{"state"},
	)

	MetricScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metric_score",
			Help: "Latest context metric score per symbol",
		},
		[]string{"symbol", "metric"},
	)

	ScanCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_cycle_duration_seconds",
			Help:    "Duration of a full scan over the symbol universe",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// Signals
	SignalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_emitted_total",
			Help: "SELL signals emitted",
		},
		[]string{"symbol"},
	)

	SignalsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_suppressed_total",
			Help: "SELL signals suppressed by cooldown",
		},
		[]string{"symbol"},
	)

	// Data sources
	SourceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fallbacks_total",
			Help: "Collections served by the fallback source after a primary failure",
		},
		[]string{"source"},
	)

	SourceCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_cache_hits_total",
			Help: "Vendor responses served from cache by call kind",
		},
		[]string{"kind"},
	)

	// Websocket gateway
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Open websocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Updates queued to websocket clients by message type",
		},
		[]string{"type"},
	)

	WSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_dropped_total",
			Help: "Updates dropped for slow or closed websocket clients by message type",
		},
		[]string{"type"},
	)
)
