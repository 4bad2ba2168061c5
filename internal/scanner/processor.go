package scanner

import (
	"context"
	"fmt"

	"github.com/tradion/volatility-signals/internal/agent"
	"github.com/tradion/volatility-signals/internal/data"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// Collector gathers analysis inputs for a symbol
type Collector interface {
	Collect(ctx context.Context, symbol string) (*data.Inputs, error)
}

// AnalysisPublisher streams analyses to live consumers
type AnalysisPublisher interface {
	PublishAnalysis(ctx context.Context, analysis *models.SymbolAnalysis) error
}

// SignalEmitter emits SELL signals
type SignalEmitter interface {
	EmitSignal(ctx context.Context, signal *models.Signal) error
}

// Outcome is the result of processing one symbol
type Outcome struct {
	Analysis   *models.SymbolAnalysis
	Inputs     *data.Inputs
	Signal     *models.Signal
	Suppressed bool
}

// Processor runs collect, analyze, store, publish and emit for one symbol.
// Store, publisher, cooldown and emitter are optional.
type Processor struct {
	collector      Collector
	store          *AnalysisStore
	publisher      AnalysisPublisher
	cooldown       Cooldown
	emitter        SignalEmitter
	proposeSpreads bool
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithAnalysisStore stores each analysis as the symbol's latest
func WithAnalysisStore(store *AnalysisStore) ProcessorOption {
	return func(p *Processor) { p.store = store }
}

// WithAnalysisPublisher publishes each analysis
func WithAnalysisPublisher(publisher AnalysisPublisher) ProcessorOption {
	return func(p *Processor) { p.publisher = publisher }
}

// WithSignals emits SELL signals through emitter, gated by cooldown
func WithSignals(emitter SignalEmitter, cooldown Cooldown) ProcessorOption {
	return func(p *Processor) {
		p.emitter = emitter
		p.cooldown = cooldown
	}
}

// WithSpreadProposals attaches a call credit spread to emitted signals
func WithSpreadProposals(enabled bool) ProcessorOption {
	return func(p *Processor) { p.proposeSpreads = enabled }
}

// NewProcessor creates a new processor
func NewProcessor(collector Collector, opts ...ProcessorOption) *Processor {
	if collector == nil {
		panic("collector cannot be nil")
	}
	p := &Processor{collector: collector}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process analyzes symbol. Failures after the analysis is computed (store,
// publish, emit) are logged and do not fail the call.
func (p *Processor) Process(ctx context.Context, symbol string) (*Outcome, error) {
	ctx = logger.WithSymbol(ctx, symbol)
	log := logger.WithContext(ctx)

	inputs, err := p.collector.Collect(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", symbol, err)
	}

	analysis, err := agent.Analyze(symbol, inputs.Series, inputs.Snapshot, inputs.HistoricalIV)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	recordAnalysis(analysis)

	outcome := &Outcome{Analysis: analysis, Inputs: inputs}

	if p.store != nil {
		stored := &StoredAnalysis{Analysis: analysis, Price: inputs.Current().Price, Source: inputs.Source}
		if err := p.store.Save(ctx, stored); err != nil {
			log.Error("Failed to store analysis", logger.ErrorField(err))
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishAnalysis(ctx, analysis); err != nil {
			log.Error("Failed to publish analysis", logger.ErrorField(err))
		}
	}

	if p.emitter == nil || !agent.ShouldEmitSignal(analysis) {
		return outcome, nil
	}

	if p.cooldown != nil {
		acquired, err := p.cooldown.Acquire(ctx, symbol)
		if err != nil {
			log.Error("Cooldown check failed, skipping signal", logger.ErrorField(err))
			return outcome, nil
		}
		if !acquired {
			logger.SignalsSuppressed.WithLabelValues(symbol).Inc()
			log.Debug("Signal on cooldown, skipping")
			outcome.Suppressed = true
			return outcome, nil
		}
	}

	signal := NewSignal(analysis, inputs, p.proposeSpreads)
	if err := p.emitter.EmitSignal(ctx, signal); err != nil {
		log.Error("Failed to emit signal", logger.ErrorField(err))
		if p.cooldown != nil {
			if relErr := p.cooldown.Release(ctx, symbol); relErr != nil {
				log.Warn("Failed to release cooldown", logger.ErrorField(relErr))
			}
		}
		return outcome, nil
	}

	logger.SignalsEmitted.WithLabelValues(symbol).Inc()
	outcome.Signal = signal
	return outcome, nil
}

// NewSignal builds a SELL signal from an analysis and the inputs it was computed from
func NewSignal(analysis *models.SymbolAnalysis, inputs *data.Inputs, proposeSpread bool) *models.Signal {
	price := inputs.Current().Price
	signal := &models.Signal{
		Symbol:      analysis.Symbol,
		State:       analysis.State,
		Price:       price,
		Metrics:     analysis.Metrics,
		Timestamp:   analysis.Timestamp,
		Explanation: analysis.Explanation,
		Source:      inputs.Source,
	}
	if proposeSpread {
		signal.CallCreditSpread = agent.ProposeCallCreditSpread(inputs.Snapshot, price)
	}
	return signal
}

func recordAnalysis(analysis *models.SymbolAnalysis) {
	logger.AnalysesTotal.WithLabelValues(string(analysis.State)).Inc()
	for _, nm := range analysis.Metrics.Named() {
		logger.MetricScore.WithLabelValues(analysis.Symbol, nm.Key).Set(nm.Result.Score)
	}
}
