package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"vwapReversionBot/internal/adapters/logger" // Import the logger package for LogLevel
	"vwapReversionBot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Alpaca API
	APIKey    string
	SecretKey string
	BaseURL   string // Paper or live trading endpoint
	DataFeed  string // Market data feed subscription ("iex" or "sip")

	// Trading Parameters
	Symbols       []string
	Timeframe     domain.Timeframe
	BarLimit      int     // Bars fetched per symbol per iteration
	PositionSize  float64 // Dollar value of each entry (e.g., 100 for $100 per trade)
	StopLossPct   float64 // Stop loss fraction of entry price (e.g., 0.03 for 3%)
	TakeProfitPct float64 // Take profit fraction of entry price (e.g., 0.08 for 8%)

	// Strategy Parameters
	VWAPBuyThreshold  float64 // e.g., 0.99
	VWAPSellThreshold float64 // e.g., 1.01
	VWAPSafetyFloor   float64 // e.g., 0.95
	RSIPeriod         int     // e.g., 14
	RSIOverbought     float64 // e.g., 70.0

	// Polling
	PollInterval           time.Duration // Time between strategy iterations
	AccountSummaryInterval time.Duration // Time between persisted balance samples

	// Database
	DBPath string

	// Profiles
	ProfilesDir string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFile  string

	// Connection Settings (passed through to the Alpaca client)
	RetryLimit int
	RetryDelay time.Duration
}

// ExecutionSettings renders the trading parameters in the form the risk
// manager consumes.
func (c *Config) ExecutionSettings() domain.ExecutionSettings {
	return domain.ExecutionSettings{
		PositionSizeDollars: c.PositionSize,
		StopLossPct:         c.StopLossPct,
		TakeProfitPct:       c.TakeProfitPct,
	}
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Alpaca API
	cfg.APIKey = getEnv("ALPACA_API_KEY", "")
	cfg.SecretKey = getEnv("ALPACA_SECRET_KEY", "")
	cfg.BaseURL = getEnv("BASE_URL", "https://paper-api.alpaca.markets")
	cfg.DataFeed = strings.ToLower(getEnv("DATA_FEED", "iex"))

	if cfg.APIKey == "" {
		errs = append(errs, "ALPACA_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "ALPACA_SECRET_KEY must be set")
	}
	if cfg.BaseURL == "" {
		errs = append(errs, "BASE_URL must be set")
	}
	if cfg.DataFeed != "iex" && cfg.DataFeed != "sip" {
		errs = append(errs, fmt.Sprintf("invalid DATA_FEED %q (want iex or sip)", cfg.DataFeed))
	}

	// Trading Parameters
	cfg.Symbols = getEnvAsSlice("SYMBOLS", []string{"AAPL", "NVDA", "TSLA", "AMZN", "META"})
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.Timeframe = domain.Timeframe(getEnv("TIMEFRAME", "5Min"))
	if !cfg.Timeframe.IsValid() {
		errs = append(errs, fmt.Sprintf("invalid TIMEFRAME %q (want 1Min, 5Min, 15Min, 1Hour or 1Day)", cfg.Timeframe))
	}

	cfg.BarLimit, err = getEnvAsIntRequired("BAR_LIMIT", 200)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BAR_LIMIT: %v", err))
	} else if cfg.BarLimit <= 0 {
		errs = append(errs, "BAR_LIMIT must be positive")
	}

	cfg.PositionSize, err = getEnvAsFloatRequired("POSITION_SIZE", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POSITION_SIZE: %v", err))
	} else if cfg.PositionSize <= 0 {
		errs = append(errs, "POSITION_SIZE must be positive")
	}

	cfg.StopLossPct, err = getEnvAsFloatRequired("STOP_LOSS_PCT", 0.03)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS_PCT: %v", err))
	} else if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 1.0 {
		errs = append(errs, "STOP_LOSS_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.TakeProfitPct, err = getEnvAsFloatRequired("TAKE_PROFIT_PCT", 0.08)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_PCT: %v", err))
	} else if cfg.TakeProfitPct <= 0 {
		errs = append(errs, "TAKE_PROFIT_PCT must be positive")
	}

	// Strategy Parameters (using defaults if not set)
	cfg.VWAPBuyThreshold = getEnvAsFloat("VWAP_BUY_THRESHOLD", 0.99)
	cfg.VWAPSellThreshold = getEnvAsFloat("VWAP_SELL_THRESHOLD", 1.01)
	cfg.VWAPSafetyFloor = getEnvAsFloat("VWAP_SAFETY_THRESHOLD", 0.95)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", 70.0)

	if cfg.RSIPeriod <= 0 {
		errs = append(errs, "RSI_PERIOD must be positive")
	}
	if cfg.RSIOverbought <= 0 || cfg.RSIOverbought >= 100 {
		errs = append(errs, "RSI_OVERBOUGHT must be between 0 and 100 (exclusive)")
	}
	if cfg.VWAPSafetyFloor <= 0 || cfg.VWAPSafetyFloor >= cfg.VWAPBuyThreshold {
		errs = append(errs, "VWAP_SAFETY_THRESHOLD must be positive and below VWAP_BUY_THRESHOLD")
	}
	if cfg.VWAPBuyThreshold >= 1.0 {
		errs = append(errs, "VWAP_BUY_THRESHOLD must be below 1.0")
	}
	if cfg.VWAPSellThreshold <= 1.0 {
		errs = append(errs, "VWAP_SELL_THRESHOLD must be above 1.0")
	}

	// Polling
	pollIntervalSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 60)
	if pollIntervalSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollIntervalSeconds) * time.Second

	summaryIntervalMinutes := getEnvAsInt("ACCOUNT_SUMMARY_INTERVAL_MINUTES", 60)
	if summaryIntervalMinutes <= 0 {
		errs = append(errs, "ACCOUNT_SUMMARY_INTERVAL_MINUTES must be positive")
	}
	cfg.AccountSummaryInterval = time.Duration(summaryIntervalMinutes) * time.Minute

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./trades.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Profiles
	cfg.ProfilesDir = getEnv("PROFILES_DIR", "./profiles")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFile = getEnv("LOG_FILE", "vwap_bot.log")

	// Connection Settings
	cfg.RetryLimit = getEnvAsInt("RETRY_LIMIT", 3)
	if cfg.RetryLimit < 0 {
		errs = append(errs, "RETRY_LIMIT cannot be negative")
	}

	retryDelaySeconds := getEnvAsInt("RETRY_DELAY_SECONDS", 1)
	if retryDelaySeconds <= 0 {
		errs = append(errs, "RETRY_DELAY_SECONDS must be positive")
	}
	cfg.RetryDelay = time.Duration(retryDelaySeconds) * time.Second

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

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
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

// getEnvAsSlice parses a comma-separated list, trimming whitespace around
// each element and dropping empties.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
