package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradion/volatility-signals/internal/agent"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/internal/scanner"
	"github.com/tradion/volatility-signals/internal/storage"
	"github.com/tradion/volatility-signals/pkg/logger"
)

const (
	defaultSignalLimit = 100
	maxSignalLimit     = 1000
)

// AnalysisReader reads the latest stored analysis per symbol
type AnalysisReader interface {
	Latest(ctx context.Context, symbol string) (*scanner.StoredAnalysis, error)
}

// Refresher runs collection and analysis for a symbol on demand
type Refresher interface {
	Process(ctx context.Context, symbol string) (*scanner.Outcome, error)
}

// AnalysisResponse is the analysis view served to clients
type AnalysisResponse struct {
	Symbol     string                 `json:"symbol"`
	Analysis   *models.SymbolAnalysis `json:"analysis"`
	Summary    agent.Summary          `json:"summary"`
	ShouldSell bool                   `json:"should_emit_signal"`
	Price      float64                `json:"price"`
	Source     string                 `json:"source"`
}

func newAnalysisResponse(stored *scanner.StoredAnalysis) AnalysisResponse {
	return AnalysisResponse{
		Symbol:     stored.Analysis.Symbol,
		Analysis:   stored.Analysis,
		Summary:    agent.Summarize(stored.Analysis),
		ShouldSell: agent.ShouldEmitSignal(stored.Analysis),
		Price:      stored.Price,
		Source:     stored.Source,
	}
}

// SymbolHandler serves the configured symbol universe
type SymbolHandler struct {
	symbols []string
}

// NewSymbolHandler creates a new symbol handler
func NewSymbolHandler(symbols []string) *SymbolHandler {
	return &SymbolHandler{
		symbols: symbols,
	}
}

// ListSymbols handles GET /api/v1/symbols
func (h *SymbolHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	filtered := h.symbols
	if search != "" {
		// Simple case-insensitive search
		searchUpper := strings.ToUpper(search)
		filtered = make([]string, 0, len(h.symbols))
		for _, symbol := range h.symbols {
			if strings.Contains(symbol, searchUpper) {
				filtered = append(filtered, symbol)
			}
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": filtered,
		"count":   len(filtered),
	})
}

// AnalysisHandler serves the latest analyses
type AnalysisHandler struct {
	symbols        []string
	known          map[string]bool
	reader         AnalysisReader
	refresher      Refresher
	refreshTimeout time.Duration
}

// NewAnalysisHandler creates an analysis handler. A nil refresher disables
// ?refresh=true.
func NewAnalysisHandler(symbols []string, reader AnalysisReader, refresher Refresher, refreshTimeout time.Duration) *AnalysisHandler {
	known := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		known[s] = true
	}
	if refreshTimeout <= 0 {
		refreshTimeout = 20 * time.Second
	}
	return &AnalysisHandler{
		symbols:        symbols,
		known:          known,
		reader:         reader,
		refresher:      refresher,
		refreshTimeout: refreshTimeout,
	}
}

// GetAnalysis handles GET /api/v1/analysis/{symbol}
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if !h.known[symbol] {
		respondWithError(w, http.StatusNotFound, "Symbol not found")
		return
	}

	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		h.refresh(w, r, symbol)
		return
	}

	stored, err := h.reader.Latest(r.Context(), symbol)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "No analysis available yet")
		return
	}
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to read analysis",
			logger.Symbol(symbol),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve analysis")
		return
	}

	respondWithJSON(w, http.StatusOK, newAnalysisResponse(stored))
}

func (h *AnalysisHandler) refresh(w http.ResponseWriter, r *http.Request, symbol string) {
	if h.refresher == nil {
		respondWithError(w, http.StatusServiceUnavailable, "On-demand refresh is not available")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.refreshTimeout)
	defer cancel()
	ctx = logger.WithTraceID(ctx, logger.NewTraceID())

	outcome, err := h.refresher.Process(ctx, symbol)
	if err != nil {
		logger.WithContext(ctx).Warn("On-demand analysis failed",
			logger.Symbol(symbol),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusBadGateway, "Failed to analyze symbol")
		return
	}

	respondWithJSON(w, http.StatusOK, newAnalysisResponse(&scanner.StoredAnalysis{
		Analysis: outcome.Analysis,
		Price:    outcome.Inputs.Current().Price,
		Source:   outcome.Inputs.Source,
	}))
}

// ListAnalyses handles GET /api/v1/analysis. Symbols without a stored
// analysis are listed under "pending".
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses := make([]AnalysisResponse, 0, len(h.symbols))
	pending := make([]string, 0)

	for _, symbol := range h.symbols {
		stored, err := h.reader.Latest(r.Context(), symbol)
		if errors.Is(err, storage.ErrNotFound) {
			pending = append(pending, symbol)
			continue
		}
		if err != nil {
			logger.WithContext(r.Context()).Error("Failed to read analysis",
				logger.Symbol(symbol),
				logger.ErrorField(err),
			)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve analyses")
			return
		}
		analyses = append(analyses, newAnalysisResponse(stored))
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"count":    len(analyses),
		"pending":  pending,
	})
}

// SignalHandler handles signal history endpoints
type SignalHandler struct {
	signalStorage storage.SignalStorage
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(signalStorage storage.SignalStorage) *SignalHandler {
	return &SignalHandler{
		signalStorage: signalStorage,
	}
}

// ListSignals handles GET /api/v1/signals
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.SignalFilter{
		Symbol: strings.ToUpper(query.Get("symbol")),
		Limit:  defaultSignalLimit,
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxSignalLimit {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			respondWithError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = offset
	}

	// Parse date range
	for name, dest := range map[string]*time.Time{"start_time": &filter.StartTime, "end_time": &filter.EndTime} {
		value := query.Get(name)
		if value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, name+" must be RFC3339")
			return
		}
		*dest = t
	}

	signals, err := h.signalStorage.GetSignals(r.Context(), filter)
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to list signals", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetSignal handles GET /api/v1/signals/{id}
func (h *SignalHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	signalID := mux.Vars(r)["id"]

	signal, err := h.signalStorage.GetSignal(r.Context(), signalID)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Signal not found")
		return
	}
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to retrieve signal",
			logger.String("signal_id", signalID),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve signal")
		return
	}

	respondWithJSON(w, http.StatusOK, signal)
}
