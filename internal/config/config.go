package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohamedkhairy/market-pulse/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	Auth      AuthConfig
	Feed      FeedConfig
	Baseline  BaselineConfig
	Monitor   MonitorConfig
	Dashboard DashboardConfig
	Email     EmailConfig
	Redis     RedisConfig

	// Sentiments maps every tracked symbol to its dashboard classification.
	// The key set is the tracked symbol universe.
	Sentiments map[string]models.Sentiment
}

// AuthConfig holds the brokerage login flow configuration
type AuthConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// FeedConfig holds the streaming feed configuration
type FeedConfig struct {
	URL               string
	ChannelID         int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  int // seconds, advertised in SETUP
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	CloseGracePeriod  time.Duration
}

// BaselineConfig holds the average-volume / options loader configuration
type BaselineConfig struct {
	PrimaryURL      string
	SecondaryURL    string
	SnapshotFile    string
	LookbackDays    int
	VolumeFloor     float64
	PainInterval    time.Duration
	ProfileInterval time.Duration
	Timeout         time.Duration
}

// MonitorConfig holds the breakout monitor configuration
type MonitorConfig struct {
	Interval        time.Duration
	HistorySize     int
	AlertHourCST    int
	AlertMinuteFrom int
	AlertMinuteTo   int
	UTCOffsetHours  int // fixed civil offset for "CST"; negative west of UTC
}

// DashboardConfig holds the web dashboard configuration
type DashboardConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// EmailConfig holds the SMTP notification sink configuration
type EmailConfig struct {
	Host     string
	Port     int
	Sender   string
	Password string
	Receiver string
}

// Configured reports whether the SMTP sink has everything it needs.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.Sender != "" && e.Password != "" && e.Receiver != ""
}

// RedisConfig holds the optional Redis alert-guard configuration.
// When Host is empty the in-memory guard is used instead.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			BaseURL:  getEnv("AUTH_BASE_URL", "https://api.tastytrade.com"),
			Username: getEnv("AUTH_USERNAME", ""),
			Password: getEnv("AUTH_PASSWORD", ""),
			Timeout:  getEnvAsDuration("AUTH_TIMEOUT", 10*time.Second),
		},
		Feed: FeedConfig{
			URL:               getEnv("FEED_URL", "wss://tasty-openapi-ws.dxfeed.com/realtime"),
			ChannelID:         getEnvAsInt("FEED_CHANNEL_ID", 1),
			KeepaliveInterval: getEnvAsDuration("FEED_KEEPALIVE_INTERVAL", 30*time.Second),
			KeepaliveTimeout:  getEnvAsInt("FEED_KEEPALIVE_TIMEOUT", 60),
			HandshakeTimeout:  getEnvAsDuration("FEED_HANDSHAKE_TIMEOUT", 10*time.Second),
			WriteTimeout:      getEnvAsDuration("FEED_WRITE_TIMEOUT", 10*time.Second),
			CloseGracePeriod:  getEnvAsDuration("FEED_CLOSE_GRACE_PERIOD", 2*time.Second),
		},
		Baseline: BaselineConfig{
			PrimaryURL:      getEnv("BASELINE_PRIMARY_URL", "https://api.tastytrade.com"),
			SecondaryURL:    getEnv("BASELINE_SECONDARY_URL", ""),
			SnapshotFile:    getEnv("BASELINE_SNAPSHOT_FILE", "daily.json"),
			LookbackDays:    getEnvAsInt("BASELINE_LOOKBACK_DAYS", 5),
			VolumeFloor:     getEnvAsFloat("BASELINE_VOLUME_FLOOR", 1_000_000),
			PainInterval:    getEnvAsDuration("BASELINE_PAIN_INTERVAL", 1*time.Hour),
			ProfileInterval: getEnvAsDuration("BASELINE_PROFILE_INTERVAL", 7*24*time.Hour),
			Timeout:         getEnvAsDuration("BASELINE_TIMEOUT", 15*time.Second),
		},
		Monitor: MonitorConfig{
			Interval:        getEnvAsDuration("MONITOR_INTERVAL", 30*time.Second),
			HistorySize:     getEnvAsInt("MONITOR_HISTORY_SIZE", 20),
			AlertHourCST:    getEnvAsInt("MONITOR_ALERT_HOUR_CST", 9),
			AlertMinuteFrom: getEnvAsInt("MONITOR_ALERT_MINUTE_FROM", 55),
			AlertMinuteTo:   getEnvAsInt("MONITOR_ALERT_MINUTE_TO", 56),
			UTCOffsetHours:  getEnvAsInt("MONITOR_UTC_OFFSET_HOURS", -6),
		},
		Dashboard: DashboardConfig{
			Port:         getEnvAsInt("DASHBOARD_PORT", 5010),
			ReadTimeout:  getEnvAsDuration("DASHBOARD_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("DASHBOARD_WRITE_TIMEOUT", 15*time.Second),
			PingInterval: getEnvAsDuration("DASHBOARD_PING_INTERVAL", 30*time.Second),
		},
		Email: EmailConfig{
			Host:     getEnv("EMAIL_SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("EMAIL_SMTP_PORT", 587),
			Sender:   getEnv("EMAIL_SENDER", ""),
			Password: getEnv("EMAIL_PASSWORD", ""),
			Receiver: getEnv("EMAIL_RECEIVER", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Sentiments: loadSentiments(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// defaultSentiments is the out-of-the-box watchlist, matching the dashboard's
// broad-market indicator set.
func defaultSentiments() map[string]models.Sentiment {
	return map[string]models.Sentiment{
		"SPY": models.SentimentPositive,
		"QQQ": models.SentimentPositive,
		"XLF": models.SentimentPositive,
		"XLP": models.SentimentPositive,
		"XLU": models.SentimentNeutral,
		"IYR": models.SentimentNeutral,
		"TIP": models.SentimentNeutral,
		"GLD": models.SentimentNeutral,
		"TLT": models.SentimentNeutral,
		"VIX": models.SentimentNegative,
		"UUP": models.SentimentNegative,
		"DXY": models.SentimentNegative,
	}
}

// loadSentiments builds the symbol universe from the three classification
// lists. Falls back to the default watchlist when all three are empty.
func loadSentiments() map[string]models.Sentiment {
	sentiments := make(map[string]models.Sentiment)
	for _, s := range getEnvAsStringSlice("SYMBOLS_POSITIVE", nil) {
		sentiments[s] = models.SentimentPositive
	}
	for _, s := range getEnvAsStringSlice("SYMBOLS_NEUTRAL", nil) {
		sentiments[s] = models.SentimentNeutral
	}
	for _, s := range getEnvAsStringSlice("SYMBOLS_NEGATIVE", nil) {
		sentiments[s] = models.SentimentNegative
	}
	if len(sentiments) == 0 {
		return defaultSentiments()
	}
	return sentiments
}

// Symbols returns the tracked symbol universe.
func (c *Config) Symbols() []string {
	symbols := make([]string, 0, len(c.Sentiments))
	for s := range c.Sentiments {
		symbols = append(symbols, s)
	}
	return symbols
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return fmt.Errorf("AUTH_USERNAME and AUTH_PASSWORD are required")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("FEED_URL is required")
	}
	if len(c.Sentiments) == 0 {
		return fmt.Errorf("at least one tracked symbol is required")
	}
	if c.Monitor.HistorySize <= 1 {
		return fmt.Errorf("MONITOR_HISTORY_SIZE must be greater than 1")
	}
	if c.Monitor.AlertMinuteFrom > c.Monitor.AlertMinuteTo {
		return fmt.Errorf("MONITOR_ALERT_MINUTE_FROM must not exceed MONITOR_ALERT_MINUTE_TO")
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
