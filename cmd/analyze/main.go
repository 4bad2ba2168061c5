package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradion/volatility-signals/internal/agent"
	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/data"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/scanner"
	"github.com/tradion/volatility-signals/pkg/logger"
)

// report is one symbol's entry in the printed output
type report struct {
	Symbol   string                 `json:"symbol"`
	Source   string                 `json:"source,omitempty"`
	Price    float64                `json:"price,omitempty"`
	Analysis *models.SymbolAnalysis `json:"analysis,omitempty"`
	Summary  *agent.Summary         `json:"summary,omitempty"`
	Signal   *models.Signal         `json:"signal,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func main() {
	// Command line flags
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols (default: MARKET_DATA_SYMBOLS)")
	provider := flag.String("provider", "", "Market data provider override: mock or massive")
	seed := flag.Int64("seed", 0, "Mock data seed (0 keeps the configured seed)")
	spreads := flag.Bool("spreads", true, "Propose a call credit spread for SELL signals")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	concurrency := flag.Int("concurrency", 4, "Symbols analyzed in parallel")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *provider != "" {
		cfg.MarketData.Provider = *provider
	}
	if *seed != 0 {
		cfg.MarketData.MockSeed = *seed
	}
	symbols := cfg.MarketData.Symbols
	if *symbolsFlag != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	}
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no symbols to analyze")
		os.Exit(1)
	}

	// No cache: a one-shot run has nothing to reuse
	collector, err := data.NewCollectorFromConfig(data.NewSourceFactory(), cfg.MarketData, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	processor := scanner.NewProcessor(collector)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reports := make([]report, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*concurrency, 1))
	for i, symbol := range symbols {
		g.Go(func() error {
			reports[i] = analyze(gctx, processor, symbol, *spreads)
			return nil
		})
	}
	g.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, r := range reports {
		if r.Error != "" {
			os.Exit(2)
		}
	}
}

func analyze(ctx context.Context, processor *scanner.Processor, symbol string, spreads bool) report {
	outcome, err := processor.Process(ctx, symbol)
	if err != nil {
		return report{Symbol: symbol, Error: err.Error()}
	}

	summary := agent.Summarize(outcome.Analysis)
	r := report{
		Symbol:   symbol,
		Source:   outcome.Inputs.Source,
		Price:    outcome.Inputs.Current().Price,
		Analysis: outcome.Analysis,
		Summary:  &summary,
	}
	if agent.ShouldEmitSignal(outcome.Analysis) {
		r.Signal = scanner.NewSignal(outcome.Analysis, outcome.Inputs, spreads)
	}
	return r
}
