package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dualAgentBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// LoggerBackend selects which ports.Logger implementation the process uses.
type LoggerBackend string

const (
	LoggerStd LoggerBackend = "std"
	LoggerZap LoggerBackend = "zap"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Pairs
	PrimaryPair   string // e.g. "BTCUSDT"
	SecondaryPair string // e.g. "ETHUSDT", agent B only, high-confidence regime

	// Agent A Parameters
	TradeAmountUSD    float64 // requested per-trade USD amount (hard-capped in the engine)
	MaxOpenPositionsA int     // open position ceiling before ticks no-op
	MaxDailyLossA     float64 // USD of realized daily loss that halts agent A
	MinMCSA           float64 // MCS gate for agent A

	// Agent B Parameters
	MinMCSB         float64 // MCS gate for agent B
	MaxDailyTradesB int     // trades per calendar day

	// Execution mode. Exactly one of the two strategies is selected at
	// startup; setting both flags is a configuration error.
	AllowLiveTrading bool
	SimulationMode   bool

	// Scheduling Intervals
	AgentATick       time.Duration
	AgentBTick       time.Duration
	SentimentRefresh time.Duration
	MarketRefresh    time.Duration

	// Sentiment Source
	FGIBaseURL string

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
	Logger   LoggerBackend
}

// TradingEnabled reports whether any execution mode is configured. When
// false, both engines no-op every tick.
func (c *Config) TradingEnabled() bool {
	return c.AllowLiveTrading || c.SimulationMode
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Trading Pairs
	cfg.PrimaryPair = getEnv("PRIMARY_PAIR", "BTCUSDT")
	cfg.SecondaryPair = getEnv("SECONDARY_PAIR", "ETHUSDT")
	if cfg.PrimaryPair == "" {
		errs = append(errs, "PRIMARY_PAIR must be set")
	}
	if cfg.SecondaryPair == "" {
		errs = append(errs, "SECONDARY_PAIR must be set")
	}

	// Agent A Parameters
	cfg.TradeAmountUSD, err = getEnvAsFloatRequired("TRADE_AMOUNT_USD", 15.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADE_AMOUNT_USD: %v", err))
	} else if cfg.TradeAmountUSD <= 0 {
		errs = append(errs, "TRADE_AMOUNT_USD must be positive")
	}

	cfg.MaxOpenPositionsA, err = getEnvAsIntRequired("MAX_OPEN_POSITIONS_A", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_OPEN_POSITIONS_A: %v", err))
	} else if cfg.MaxOpenPositionsA <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS_A must be positive")
	}

	cfg.MaxDailyLossA, err = getEnvAsFloatRequired("MAX_DAILY_LOSS_A", 50.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS_A: %v", err))
	} else if cfg.MaxDailyLossA <= 0 {
		errs = append(errs, "MAX_DAILY_LOSS_A must be positive")
	}

	cfg.MinMCSA, err = getEnvAsFloatRequired("MIN_MCS_A", 0.4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_MCS_A: %v", err))
	} else if cfg.MinMCSA < 0 || cfg.MinMCSA > 1 {
		errs = append(errs, "MIN_MCS_A must be between 0.0 and 1.0")
	}

	// Agent B Parameters
	cfg.MinMCSB, err = getEnvAsFloatRequired("MIN_MCS_B", 0.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_MCS_B: %v", err))
	} else if cfg.MinMCSB < 0 || cfg.MinMCSB > 1 {
		errs = append(errs, "MIN_MCS_B must be between 0.0 and 1.0")
	}

	cfg.MaxDailyTradesB, err = getEnvAsIntRequired("MAX_DAILY_TRADES_B", 2)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_TRADES_B: %v", err))
	} else if cfg.MaxDailyTradesB <= 0 {
		errs = append(errs, "MAX_DAILY_TRADES_B must be positive")
	}

	// Execution mode
	cfg.AllowLiveTrading = getEnvAsBool("ALLOW_LIVE_TRADING", false)
	cfg.SimulationMode = getEnvAsBool("SIMULATION_MODE", true)
	if cfg.AllowLiveTrading && cfg.SimulationMode {
		errs = append(errs, "ALLOW_LIVE_TRADING and SIMULATION_MODE are mutually exclusive; pick one execution mode explicitly")
	}
	if cfg.AllowLiveTrading {
		// Live order placement needs authenticated API access up front.
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set when ALLOW_LIVE_TRADING is enabled")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set when ALLOW_LIVE_TRADING is enabled")
		}
	}

	// Scheduling Intervals
	cfg.AgentATick = getEnvAsDuration("AGENT_A_TICK_INTERVAL", 5*time.Minute, &errs)
	cfg.AgentBTick = getEnvAsDuration("AGENT_B_TICK_INTERVAL", 15*time.Minute, &errs)
	cfg.SentimentRefresh = getEnvAsDuration("SENTIMENT_REFRESH_INTERVAL", time.Hour, &errs)
	cfg.MarketRefresh = getEnvAsDuration("MARKET_REFRESH_INTERVAL", 2*time.Minute, &errs)

	// Sentiment Source
	cfg.FGIBaseURL = getEnv("FGI_BASE_URL", "https://api.alternative.me")
	if cfg.FGIBaseURL == "" {
		errs = append(errs, "FGI_BASE_URL must be set")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/dual_agent_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	backend := strings.ToLower(getEnv("LOGGER", "std"))
	switch LoggerBackend(backend) {
	case LoggerStd, LoggerZap:
		cfg.Logger = LoggerBackend(backend)
	default:
		errs = append(errs, fmt.Sprintf("invalid LOGGER value '%s' (expected 'std' or 'zap')", backend))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid duration value '%s' for key %s", valueStr, key))
		return defaultValue
	}
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be positive", key))
		return defaultValue
	}
	return value
}
