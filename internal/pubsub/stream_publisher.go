package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// Stream field names carrying the JSON payload
const (
	AnalysisField = "analysis"
	SignalField   = "signal"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_publish_total",
			Help: "Total number of messages published to streams",
		},
		[]string{"stream"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_publish_errors_total",
			Help: "Total number of publish errors",
		},
		[]string{"stream"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stream_publish_latency_seconds",
			Help:    "Publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"stream"},
	)
)

// StreamPublisherConfig holds configuration for the stream publisher
type StreamPublisherConfig struct {
	AnalysisStream string
	SignalStream   string
	SignalChannel  string
	Timeout        time.Duration
}

// StreamPublisher fans analyses and signals out to Redis streams and pub/sub
type StreamPublisher struct {
	config StreamPublisherConfig
	redis  storage.RedisClient
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(redis storage.RedisClient, config StreamPublisherConfig) *StreamPublisher {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &StreamPublisher{
		config: config,
		redis:  redis,
	}
}

// PublishAnalysis appends an analysis to the analysis stream
func (p *StreamPublisher) PublishAnalysis(ctx context.Context, analysis *models.SymbolAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	return p.publish(ctx, p.config.AnalysisStream, AnalysisField, analysis)
}

// PublishSignal appends a signal to the signal stream and broadcasts it on
// the signal channel. Both are attempted; the first error is returned.
func (p *StreamPublisher) PublishSignal(ctx context.Context, signal *models.Signal) error {
	if signal == nil {
		return fmt.Errorf("signal cannot be nil")
	}
	if err := signal.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	streamErr := p.publish(ctx, p.config.SignalStream, SignalField, signal)

	var channelErr error
	if p.config.SignalChannel != "" {
		pubCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		channelErr = p.redis.Publish(pubCtx, p.config.SignalChannel, signal)
		cancel()
		if channelErr != nil {
			publishErrors.WithLabelValues(p.config.SignalChannel).Inc()
			channelErr = fmt.Errorf("failed to publish to channel %s: %w", p.config.SignalChannel, channelErr)
		}
	}

	if streamErr != nil {
		return streamErr
	}
	return channelErr
}

func (p *StreamPublisher) publish(ctx context.Context, stream, field string, value interface{}) error {
	if stream == "" {
		return nil
	}

	startTime := time.Now()
	pubCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if err := p.redis.PublishToStream(pubCtx, stream, field, value); err != nil {
		publishErrors.WithLabelValues(stream).Inc()
		return err
	}

	publishTotal.WithLabelValues(stream).Inc()
	publishLatency.WithLabelValues(stream).Observe(time.Since(startTime).Seconds())

	logger.Debug("Published to stream",
		logger.String("stream", stream),
		logger.String("field", field),
		logger.Duration("latency", time.Since(startTime)),
	)
	return nil
}
