package logger

import (
	"context"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	symbolKey  contextKey = "symbol"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithSymbol tags the context with the symbol being processed
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, symbolKey, symbol)
}

// GetSymbol retrieves the symbol from context
func GetSymbol(ctx context.Context) string {
	if symbol, ok := ctx.Value(symbolKey).(string); ok {
		return symbol
	}
	return ""
}
