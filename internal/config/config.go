package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

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

	// Pipeline
	Indicator    IndicatorConfig
	Volume       VolumeConfig
	Scoring      ScoringConfig
	Alert        AlertConfig
	Poller       PollerConfig
	Orchestrator OrchestratorConfig
	Adapters     AdapterConfig
	API          APIConfig
}

// DatabaseConfig holds TimescaleDB configuration
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
	AlertStream  string
}

// MarketDataConfig holds market data provider configuration
type MarketDataConfig struct {
	APIKey            string
	BaseURL           string
	WebSocketURL      string
	Symbols           []string
	Wildcard          bool
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReadTimeout       time.Duration
}

// IndicatorConfig holds indicator computation periods and thresholds
type IndicatorConfig struct {
	RSIPeriod         int
	RSIOversold       float64
	RSIOverbought     float64
	MACDFast          int
	MACDSlow          int
	MACDSignal        int
	SMAShort          int
	SMALong           int
	BreakoutLookback  int
	BreakoutThreshold float64 // multiplier over recent high, e.g. 1.02
}

// VolumeConfig holds volume spike detection configuration
type VolumeConfig struct {
	LookbackDays         int
	SpikeThreshold       float64
	SustainedPeriods     int
	SustainedRatio       float64
	ExceptionalThreshold float64
}

// ScoringConfig holds component weights and qualification thresholds
type ScoringConfig struct {
	WeightVolumeTechnical float64
	WeightCatalyst        float64
	WeightShortSqueeze    float64
	WeightFundamental     float64

	MinTotalScore       float64
	MinVolumeTechnical  float64
	MinCatalyst         float64
	MinFundamental      float64

	PenaltyRecentDilution float64
	PenaltyReverseSplit   float64
	PenaltyFailedFilters  float64

	BonusExceptionalVolume float64
	BonusMultipleCatalysts float64
	BonusStrongSentiment   float64
	BonusPumpPotential     float64

	StrongSentimentThreshold float64
}

// AlertConfig holds alert gate configuration
type AlertConfig struct {
	DedupWindow     time.Duration
	MaxAlertsPerHour int
	Cooldown        time.Duration
	MaxTrackedKeys  int
}

// PollerConfig holds session poller configuration
type PollerConfig struct {
	Interval          time.Duration
	SnapshotLimit     int
	MinVolumePre      int64
	MinVolumeMarket   int64
	MinVolumePost     int64
	RequestsPerSecond float64
}

// OrchestratorConfig holds scoring orchestration configuration
type OrchestratorConfig struct {
	MaxConcurrent    int64
	TickerCooldown   time.Duration
	MinVolumeToScore int64
	ScoreTimeout     time.Duration
}

// AdapterConfig holds external enrichment adapter configuration
type AdapterConfig struct {
	BaseURL           string
	APIKey            string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	BreakerMaxFailures uint32
	BreakerTimeout    time.Duration
	FundamentalsRefresh time.Duration
	FundamentalsBatch   int
	FundamentalsPace    time.Duration
	NewsPollInterval    time.Duration
	MinMarketCap        float64
	MaxDebtToEquity     float64
	MinPrice            float64
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port         int
	MetricsPort  int
	JWTSecret    string
	JWTExpiry    time.Duration
	RateLimitRPS int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory or parent directories
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
			Database:        getEnv("DB_NAME", "swing_scanner"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			AlertStream:  getEnv("REDIS_ALERT_STREAM", "alerts"),
		},
		MarketData: MarketDataConfig{
			APIKey:            getEnv("MARKET_DATA_API_KEY", ""),
			BaseURL:           getEnv("MARKET_DATA_BASE_URL", "https://api.polygon.io"),
			WebSocketURL:      getEnv("MARKET_DATA_WS_URL", "wss://socket.polygon.io/stocks"),
			Symbols:           getEnvAsStringSlice("MARKET_DATA_SYMBOLS", []string{}),
			Wildcard:          getEnvAsBool("MARKET_DATA_WILDCARD", false),
			ReconnectDelay:    getEnvAsDuration("MARKET_DATA_RECONNECT_DELAY", 5*time.Second),
			MaxReconnectDelay: getEnvAsDuration("MARKET_DATA_MAX_RECONNECT_DELAY", 120*time.Second),
			ReadTimeout:       getEnvAsDuration("MARKET_DATA_READ_TIMEOUT", 30*time.Second),
		},
		Indicator: IndicatorConfig{
			RSIPeriod:         getEnvAsInt("INDICATOR_RSI_PERIOD", 14),
			RSIOversold:       getEnvAsFloat("INDICATOR_RSI_OVERSOLD", 30),
			RSIOverbought:     getEnvAsFloat("INDICATOR_RSI_OVERBOUGHT", 70),
			MACDFast:          getEnvAsInt("INDICATOR_MACD_FAST", 12),
			MACDSlow:          getEnvAsInt("INDICATOR_MACD_SLOW", 26),
			MACDSignal:        getEnvAsInt("INDICATOR_MACD_SIGNAL", 9),
			SMAShort:          getEnvAsInt("INDICATOR_SMA_SHORT", 10),
			SMALong:           getEnvAsInt("INDICATOR_SMA_LONG", 50),
			BreakoutLookback:  getEnvAsInt("INDICATOR_BREAKOUT_LOOKBACK", 20),
			BreakoutThreshold: getEnvAsFloat("INDICATOR_BREAKOUT_THRESHOLD", 1.02),
		},
		Volume: VolumeConfig{
			LookbackDays:         getEnvAsInt("VOLUME_LOOKBACK_DAYS", 20),
			SpikeThreshold:       getEnvAsFloat("VOLUME_SPIKE_THRESHOLD", 2.5),
			SustainedPeriods:     getEnvAsInt("VOLUME_SUSTAINED_PERIODS", 3),
			SustainedRatio:       getEnvAsFloat("VOLUME_SUSTAINED_RATIO", 0.7),
			ExceptionalThreshold: getEnvAsFloat("VOLUME_EXCEPTIONAL_THRESHOLD", 5.0),
		},
		Scoring: ScoringConfig{
			WeightVolumeTechnical: getEnvAsFloat("SCORING_WEIGHT_VOLUME_TECHNICAL", 0.30),
			WeightCatalyst:        getEnvAsFloat("SCORING_WEIGHT_CATALYST", 0.35),
			WeightShortSqueeze:    getEnvAsFloat("SCORING_WEIGHT_SHORT_SQUEEZE", 0.15),
			WeightFundamental:     getEnvAsFloat("SCORING_WEIGHT_FUNDAMENTAL", 0.20),

			MinTotalScore:      getEnvAsFloat("SCORING_MIN_TOTAL", 75),
			MinVolumeTechnical: getEnvAsFloat("SCORING_MIN_VOLUME_TECHNICAL", 20),
			MinCatalyst:        getEnvAsFloat("SCORING_MIN_CATALYST", 25),
			MinFundamental:     getEnvAsFloat("SCORING_MIN_FUNDAMENTAL", 12),

			PenaltyRecentDilution: getEnvAsFloat("SCORING_PENALTY_RECENT_DILUTION", 15),
			PenaltyReverseSplit:   getEnvAsFloat("SCORING_PENALTY_REVERSE_SPLIT", 20),
			PenaltyFailedFilters:  getEnvAsFloat("SCORING_PENALTY_FAILED_FILTERS", 10),

			BonusExceptionalVolume: getEnvAsFloat("SCORING_BONUS_EXCEPTIONAL_VOLUME", 5),
			BonusMultipleCatalysts: getEnvAsFloat("SCORING_BONUS_MULTIPLE_CATALYSTS", 3),
			BonusStrongSentiment:   getEnvAsFloat("SCORING_BONUS_STRONG_SENTIMENT", 3),
			BonusPumpPotential:     getEnvAsFloat("SCORING_BONUS_PUMP_POTENTIAL", 8),

			StrongSentimentThreshold: getEnvAsFloat("SCORING_STRONG_SENTIMENT_THRESHOLD", 0.7),
		},
		Alert: AlertConfig{
			DedupWindow:      getEnvAsDuration("ALERT_DEDUP_WINDOW", 60*time.Minute),
			MaxAlertsPerHour: getEnvAsInt("ALERT_MAX_PER_HOUR", 10),
			Cooldown:         getEnvAsDuration("ALERT_COOLDOWN", 30*time.Minute),
			MaxTrackedKeys:   getEnvAsInt("ALERT_MAX_TRACKED_KEYS", 1000),
		},
		Poller: PollerConfig{
			Interval:          getEnvAsDuration("POLLER_INTERVAL", 60*time.Second),
			SnapshotLimit:     getEnvAsInt("POLLER_SNAPSHOT_LIMIT", 50),
			MinVolumePre:      getEnvAsInt64("POLLER_MIN_VOLUME_PRE", 100000),
			MinVolumeMarket:   getEnvAsInt64("POLLER_MIN_VOLUME_MARKET", 500000),
			MinVolumePost:     getEnvAsInt64("POLLER_MIN_VOLUME_POST", 100000),
			RequestsPerSecond: getEnvAsFloat("POLLER_REQUESTS_PER_SECOND", 5),
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent:    int64(getEnvAsInt("ORCHESTRATOR_MAX_CONCURRENT", 1)),
			TickerCooldown:   getEnvAsDuration("ORCHESTRATOR_TICKER_COOLDOWN", 120*time.Second),
			MinVolumeToScore: getEnvAsInt64("ORCHESTRATOR_MIN_VOLUME", 50000),
			ScoreTimeout:     getEnvAsDuration("ORCHESTRATOR_SCORE_TIMEOUT", 30*time.Second),
		},
		Adapters: AdapterConfig{
			BaseURL:             getEnv("ADAPTER_BASE_URL", ""),
			APIKey:              getEnv("ADAPTER_API_KEY", ""),
			RequestTimeout:      getEnvAsDuration("ADAPTER_REQUEST_TIMEOUT", 10*time.Second),
			RequestsPerSecond:   getEnvAsFloat("ADAPTER_REQUESTS_PER_SECOND", 2),
			BreakerMaxFailures:  uint32(getEnvAsInt("ADAPTER_BREAKER_MAX_FAILURES", 5)),
			BreakerTimeout:      getEnvAsDuration("ADAPTER_BREAKER_TIMEOUT", 60*time.Second),
			FundamentalsRefresh: getEnvAsDuration("ADAPTER_FUNDAMENTALS_REFRESH", 24*time.Hour),
			FundamentalsBatch:   getEnvAsInt("ADAPTER_FUNDAMENTALS_BATCH", 10),
			FundamentalsPace:    getEnvAsDuration("ADAPTER_FUNDAMENTALS_PACE", 5*time.Second),
			NewsPollInterval:    getEnvAsDuration("ADAPTER_NEWS_POLL_INTERVAL", 10*time.Minute),
			MinMarketCap:        getEnvAsFloat("ADAPTER_MIN_MARKET_CAP", 50000000),
			MaxDebtToEquity:     getEnvAsFloat("ADAPTER_MAX_DEBT_TO_EQUITY", 2.0),
			MinPrice:            getEnvAsFloat("ADAPTER_MIN_PRICE", 1.0),
		},
		API: APIConfig{
			Port:         getEnvAsInt("API_PORT", 8090),
			MetricsPort:  getEnvAsInt("API_METRICS_PORT", 8091),
			JWTSecret:    getEnv("API_JWT_SECRET", ""),
			JWTExpiry:    getEnvAsDuration("API_JWT_EXPIRY", 24*time.Hour),
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			ReadTimeout:  getEnvAsDuration("API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("API_WRITE_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.MarketData.APIKey == "" {
		return fmt.Errorf("MARKET_DATA_API_KEY is required")
	}
	if !c.MarketData.Wildcard && len(c.MarketData.Symbols) == 0 {
		return fmt.Errorf("MARKET_DATA_SYMBOLS must contain at least one symbol unless MARKET_DATA_WILDCARD is set")
	}
	if c.Indicator.MACDFast >= c.Indicator.MACDSlow {
		return fmt.Errorf("INDICATOR_MACD_FAST must be less than INDICATOR_MACD_SLOW")
	}
	if c.Indicator.SMAShort >= c.Indicator.SMALong {
		return fmt.Errorf("INDICATOR_SMA_SHORT must be less than INDICATOR_SMA_LONG")
	}
	if c.Volume.SpikeThreshold <= 0 {
		return fmt.Errorf("VOLUME_SPIKE_THRESHOLD must be positive")
	}
	for name, w := range map[string]float64{
		"SCORING_WEIGHT_VOLUME_TECHNICAL": c.Scoring.WeightVolumeTechnical,
		"SCORING_WEIGHT_CATALYST":         c.Scoring.WeightCatalyst,
		"SCORING_WEIGHT_SHORT_SQUEEZE":    c.Scoring.WeightShortSqueeze,
		"SCORING_WEIGHT_FUNDAMENTAL":      c.Scoring.WeightFundamental,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if c.Orchestrator.MaxConcurrent < 1 {
		return fmt.Errorf("ORCHESTRATOR_MAX_CONCURRENT must be at least 1")
	}
	if c.Alert.MaxAlertsPerHour < 1 {
		return fmt.Errorf("ALERT_MAX_PER_HOUR must be at least 1")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
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
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
