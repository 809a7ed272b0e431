package config

import (
	"net/url"
	"os"
	"strconv"
	"time"

	apperrors "sjsage522/akiyawatch/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Listing page
	TargetURL       string
	CardSelector    string
	IDPrefix        string
	DefaultLocation string
	FetchTimeout    time.Duration

	// Postgres configuration
	DatabaseURL  string
	StoreTimeout time.Duration

	// LINE Messaging API configuration
	LineToken           string
	LineUserID          string
	LinePushURL         string
	NotifyTimeout       time.Duration
	NotifyRatePerSecond float64

	// Redis configuration, empty address disables change events
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration, empty address disables the fetch cool-down
	MemcacheAddr string
	FetchBlock   time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		TargetURL:       getEnv("TARGET_URL", "https://www.city.niimi.okayama.jp/akurashi/customer/customer_search"),
		CardSelector:    getEnv("CARD_SELECTOR", ".p-bukken"),
		IDPrefix:        getEnv("ID_PREFIX", "niimi_"),
		DefaultLocation: getEnv("DEFAULT_LOCATION", "新見市"),
		FetchTimeout:    getEnvSeconds("FETCH_TIMEOUT_SECONDS", 30),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		StoreTimeout: getEnvSeconds("STORE_TIMEOUT_SECONDS", 10),

		LineToken:           getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineUserID:          getEnv("LINE_USER_ID", ""),
		LinePushURL:         getEnv("LINE_PUSH_URL", "https://api.line.me/v2/bot/message/push"),
		NotifyTimeout:       getEnvSeconds("NOTIFY_TIMEOUT_SECONDS", 10),
		NotifyRatePerSecond: getEnvFloat("NOTIFY_RATE_PER_SECOND", 1),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "akiya:changes"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),
		FetchBlock:   getEnvSeconds("FETCH_BLOCK_SECONDS", 600),

		Environment: getEnv("AKIYA_ENVIRONMENT", "development"),
	}
}

// Validate checks the values a sync run cannot do without
func (c *Config) Validate() error {
	u, err := url.Parse(c.TargetURL)
	if err != nil {
		return apperrors.NewConfiguration("TARGET_URL is not a valid URL", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewConfiguration("TARGET_URL must be an absolute http(s) URL", nil)
	}
	if c.CardSelector == "" {
		return apperrors.NewConfiguration("CARD_SELECTOR must not be empty", nil)
	}
	if c.DatabaseURL == "" {
		return apperrors.NewConfiguration("DATABASE_URL is required", nil)
	}
	if c.FetchTimeout <= 0 || c.StoreTimeout <= 0 || c.NotifyTimeout <= 0 {
		return apperrors.NewConfiguration("timeouts must be positive", nil)
	}
	if c.NotifyRatePerSecond <= 0 {
		return apperrors.NewConfiguration("NOTIFY_RATE_PER_SECOND must be positive", nil)
	}
	return nil
}

// LineConfigured reports whether push credentials are present
func (c *Config) LineConfigured() bool {
	return c.LineToken != "" && c.LineUserID != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
