package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradion/volatility-signals/internal/config"
	"github.com/tradion/volatility-signals/internal/models"
	"github.com/tradion/volatility-signals/pkg/logger"
)

var (
	signalStorageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_storage_latency_seconds",
			Help:    "Signal history query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	signalStorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_storage_errors_total",
			Help: "Total number of signal history errors",
		},
		[]string{"operation"},
	)
)

const signalSchema = `
CREATE TABLE IF NOT EXISTS signal_history (
	id                 TEXT PRIMARY KEY,
	symbol             TEXT NOT NULL,
	state              TEXT NOT NULL,
	price              DOUBLE PRECISION NOT NULL,
	timestamp          TIMESTAMPTZ NOT NULL,
	explanation        TEXT NOT NULL,
	metrics            JSONB NOT NULL,
	call_credit_spread JSONB,
	source             TEXT,
	trace_id           TEXT
);
CREATE INDEX IF NOT EXISTS signal_history_symbol_ts ON signal_history (symbol, timestamp DESC);
`

const signalColumns = `id, symbol, state, price, timestamp, explanation, metrics, call_credit_spread, source, trace_id`

// PostgresSignalStorage implements SignalStorage on Postgres
type PostgresSignalStorage struct {
	db *sql.DB
}

// NewPostgresSignalStorage opens the database and ensures the signal_history table exists
func NewPostgresSignalStorage(dbConfig config.DatabaseConfig) (*PostgresSignalStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, signalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create signal_history: %w", err)
	}

	logger.Info("Signal storage initialized",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return &PostgresSignalStorage{db: db}, nil
}

// WriteSignal inserts a signal; re-writing an existing ID is a no-op
func (s *PostgresSignalStorage) WriteSignal(ctx context.Context, signal *models.Signal) error {
	if err := signal.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	metricsJSON, err := json.Marshal(signal.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	var spreadJSON []byte
	if signal.CallCreditSpread != nil {
		spreadJSON, err = json.Marshal(signal.CallCreditSpread)
		if err != nil {
			return fmt.Errorf("failed to marshal spread: %w", err)
		}
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signal_history (`+signalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		signal.ID,
		signal.Symbol,
		string(signal.State),
		signal.Price,
		signal.Timestamp,
		signal.Explanation,
		metricsJSON,
		nullableJSON(spreadJSON),
		signal.Source,
		signal.TraceID,
	)
	signalStorageLatency.WithLabelValues("write").Observe(time.Since(start).Seconds())
	if err != nil {
		signalStorageErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// GetSignals retrieves signals with filtering options
func (s *PostgresSignalStorage) GetSignals(ctx context.Context, filter SignalFilter) ([]*models.Signal, error) {
	query, args := buildSignalQuery(filter)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	signalStorageLatency.WithLabelValues("query").Observe(time.Since(start).Seconds())
	if err != nil {
		signalStorageErrors.WithLabelValues("query").Inc()
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	signals := make([]*models.Signal, 0)
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return signals, nil
}

// GetSignal retrieves a single signal by ID
func (s *PostgresSignalStorage) GetSignal(ctx context.Context, signalID string) (*models.Signal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signal_history WHERE id = $1`, signalID)

	signal, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return signal, nil
}

// Ping checks the database connection
func (s *PostgresSignalStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresSignalStorage) Close() error {
	return s.db.Close()
}

// buildSignalQuery renders the filtered history query with positional args
func buildSignalQuery(filter SignalFilter) (string, []interface{}) {
	query := `SELECT ` + signalColumns + ` FROM signal_history WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIndex)
		args = append(args, filter.Symbol)
		argIndex++
	}

	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIndex)
		args = append(args, filter.StartTime)
		argIndex++
	}

	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIndex)
		args = append(args, filter.EndTime)
		argIndex++
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row rowScanner) (*models.Signal, error) {
	var (
		signal      models.Signal
		state       string
		metricsJSON []byte
		spreadJSON  []byte
		source      sql.NullString
		traceID     sql.NullString
	)

	if err := row.Scan(
		&signal.ID,
		&signal.Symbol,
		&state,
		&signal.Price,
		&signal.Timestamp,
		&signal.Explanation,
		&metricsJSON,
		&spreadJSON,
		&source,
		&traceID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan signal: %w", err)
	}

	signal.State = models.AgentState(state)
	signal.Source = source.String
	signal.TraceID = traceID.String

	if err := json.Unmarshal(metricsJSON, &signal.Metrics); err != nil {
		logger.Warn("Failed to unmarshal signal metrics",
			logger.ErrorField(err),
			logger.String("signal_id", signal.ID),
		)
	}
	if len(spreadJSON) > 0 {
		var spread models.CallCreditSpread
		if err := json.Unmarshal(spreadJSON, &spread); err == nil {
			signal.CallCreditSpread = &spread
		}
	}

	return &signal, nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}
