package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Market data providers
const (
	ProviderMock    = "mock"
	ProviderMassive = "massive"
)

// DefaultSymbols is the universe analysed when none is configured
var DefaultSymbols = []string{"TQQQ", "SQQQ", "SPY", "QQQ", "IWM", "DIA"}

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market Data
	MarketData MarketDataConfig

	// Services
	Scanner   ScannerConfig
	WSGateway WSGatewayConfig
	API       APIConfig
}

// DatabaseConfig holds Postgres configuration for signal history
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// MarketDataConfig holds market and options data source configuration
type MarketDataConfig struct {
	Provider        string // "mock" or "massive"
	APIKey          string
	BaseURL         string
	Symbols         []string
	HistoryPoints   int
	IVHistoryDays   int
	MockSeed        int64
	FallbackToMock  bool
	MarketCacheTTL  time.Duration
	OptionsCacheTTL time.Duration
	IVCacheTTL      time.Duration
	RequestTimeout  time.Duration
}

// ScannerConfig holds refresh loop configuration
type ScannerConfig struct {
	HealthCheckPort int
	ScanInterval    time.Duration
	PublishTimeout  time.Duration
	SignalCooldown  time.Duration
	AnalysisStream  string
	SignalStream    string
	SignalChannel   string
	AnalysisTTL     time.Duration
	ProposeSpreads  bool
	Concurrency     int
	WorkerID        int
	TotalWorkers    int
	ActiveSessions  []string // empty scans around the clock
}

// WSGatewayConfig holds WebSocket gateway configuration
type WSGatewayConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxConnections int
	AnalysisStream string
	ConsumerGroup  string
	SignalChannel  string // empty disables signal pushes
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port           int
	JWTSecret      string
	JWTIssuer      string
	RateLimitRPS   int
	AllowedOrigins []string
	RefreshTimeout time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "volatility_signals"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		MarketData: MarketDataConfig{
			Provider:        getEnv("MARKET_DATA_PROVIDER", ProviderMock),
			APIKey:          getEnv("MARKET_DATA_API_KEY", ""),
			BaseURL:         getEnv("MARKET_DATA_BASE_URL", "https://api.massive.com"),
			Symbols:         normalizeSymbols(getEnvAsStringSlice("MARKET_DATA_SYMBOLS", DefaultSymbols)),
			HistoryPoints:   getEnvAsInt("MARKET_DATA_HISTORY_POINTS", 50),
			IVHistoryDays:   getEnvAsInt("MARKET_DATA_IV_HISTORY_DAYS", 252),
			MockSeed:        getEnvAsInt64("MARKET_DATA_MOCK_SEED", time.Now().UnixNano()),
			FallbackToMock:  getEnvAsBool("MARKET_DATA_FALLBACK_TO_MOCK", true),
			MarketCacheTTL:  getEnvAsDuration("MARKET_DATA_MARKET_CACHE_TTL", 8*time.Second),
			OptionsCacheTTL: getEnvAsDuration("MARKET_DATA_OPTIONS_CACHE_TTL", 30*time.Second),
			IVCacheTTL:      getEnvAsDuration("MARKET_DATA_IV_CACHE_TTL", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("MARKET_DATA_REQUEST_TIMEOUT", 10*time.Second),
		},
		Scanner: ScannerConfig{
			HealthCheckPort: getEnvAsInt("SCANNER_HEALTH_PORT", 8087),
			ScanInterval:    getEnvAsDuration("SCANNER_SCAN_INTERVAL", 30*time.Second),
			PublishTimeout:  getEnvAsDuration("SCANNER_PUBLISH_TIMEOUT", 5*time.Second),
			SignalCooldown:  getEnvAsDuration("SCANNER_SIGNAL_COOLDOWN", 15*time.Minute),
			AnalysisStream:  getEnv("SCANNER_ANALYSIS_STREAM", "analyses"),
			SignalStream:    getEnv("SCANNER_SIGNAL_STREAM", "signals"),
			SignalChannel:   getEnv("SCANNER_SIGNAL_CHANNEL", "signals.sell"),
			AnalysisTTL:     getEnvAsDuration("SCANNER_ANALYSIS_TTL", 10*time.Minute),
			ProposeSpreads:  getEnvAsBool("SCANNER_PROPOSE_SPREADS", true),
			Concurrency:     getEnvAsInt("SCANNER_CONCURRENCY", 4),
			WorkerID:        getEnvAsInt("SCANNER_WORKER_ID", 0),
			TotalWorkers:    getEnvAsInt("SCANNER_TOTAL_WORKERS", 1),
			ActiveSessions:  getEnvAsStringSlice("SCANNER_ACTIVE_SESSIONS", nil),
		},
		WSGateway: WSGatewayConfig{
			ReadTimeout:    getEnvAsDuration("WS_GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvAsDuration("WS_GATEWAY_PING_INTERVAL", 30*time.Second),
			MaxConnections: getEnvAsInt("WS_GATEWAY_MAX_CONNECTIONS", 1000),
			AnalysisStream: getEnv("WS_GATEWAY_ANALYSIS_STREAM", "analyses"),
			ConsumerGroup:  getEnv("WS_GATEWAY_CONSUMER_GROUP", "ws-gateway"),
			SignalChannel:  getEnv("WS_GATEWAY_SIGNAL_CHANNEL", "signals.sell"),
		},
		API: APIConfig{
			Port:           getEnvAsInt("API_PORT", 8090),
			JWTSecret:      getEnv("API_JWT_SECRET", ""),
			JWTIssuer:      getEnv("API_JWT_ISSUER", ""),
			RateLimitRPS:   getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			AllowedOrigins: getEnvAsStringSlice("API_ALLOWED_ORIGINS", []string{"*"}),
			RefreshTimeout: getEnvAsDuration("API_REFRESH_TIMEOUT", 20*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case ProviderMock:
	case ProviderMassive:
		if c.MarketData.APIKey == "" {
			return fmt.Errorf("MARKET_DATA_API_KEY is required for provider %q", ProviderMassive)
		}
		if c.MarketData.BaseURL == "" {
			return fmt.Errorf("MARKET_DATA_BASE_URL is required for provider %q", ProviderMassive)
		}
	default:
		return fmt.Errorf("unknown MARKET_DATA_PROVIDER %q", c.MarketData.Provider)
	}
	if len(c.MarketData.Symbols) == 0 {
		return fmt.Errorf("MARKET_DATA_SYMBOLS must contain at least one symbol")
	}
	if c.MarketData.HistoryPoints < 1 {
		return fmt.Errorf("MARKET_DATA_HISTORY_POINTS must be positive")
	}
	if c.Scanner.ScanInterval <= 0 {
		return fmt.Errorf("SCANNER_SCAN_INTERVAL must be positive")
	}
	if c.Scanner.TotalWorkers < 1 || c.Scanner.WorkerID < 0 || c.Scanner.WorkerID >= c.Scanner.TotalWorkers {
		return fmt.Errorf("SCANNER_WORKER_ID must be in [0, SCANNER_TOTAL_WORKERS)")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(s)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
