// Package config loads the monitor configuration: built-in defaults, then an
// optional YAML file named by CONFIG_FILE, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"signalmon/internal/indicator"
	"signalmon/internal/marketdata/quote"
	"signalmon/internal/ringbuf"
	"signalmon/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Asset           string              `yaml:"asset"`
	Interval        time.Duration       `yaml:"interval"`
	HistoryCapacity int                 `yaml:"history_capacity"`
	Thresholds      strategy.Thresholds `yaml:"thresholds"`

	Quote  QuoteConfig  `yaml:"quote"`
	Sinks  SinksConfig  `yaml:"sinks"`
	Notify NotifyConfig `yaml:"notify"`

	// Infrastructure
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	Console     bool   `yaml:"console"`
	ReplaySize  int    `yaml:"replay_size"`
}

type QuoteConfig struct {
	Provider   string        `yaml:"provider"`
	Timeout    time.Duration `yaml:"timeout"`
	CoinID     string        `yaml:"coin_id"`
	VsCurrency string        `yaml:"vs_currency"`
	Precision  int           `yaml:"precision"`
	BaseURL    string        `yaml:"base_url"`
	Symbol     string        `yaml:"symbol"`
	APIKey     string        `yaml:"api_key"`
	SecretKey  string        `yaml:"secret_key"`
	StreamURL  string        `yaml:"stream_url"`
	MaxAge     time.Duration `yaml:"max_age"`
	Seed       int64         `yaml:"seed"`
}

type SinksConfig struct {
	CSV      CSVConfig      `yaml:"csv"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type CSVConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	StreamMaxLen int64         `yaml:"stream_max_len"`
	LatestTTL    time.Duration `yaml:"latest_ttl"`

	// Circuit breaker and offline buffer
	BufferSize      int           `yaml:"buffer_size"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`
}

type MongoConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type NotifyConfig struct {
	Log            bool   `yaml:"log"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	WebhookURL     string `yaml:"webhook_url"`
}

// MinHistoryCapacity is the smallest history that lets every indicator warm up.
var MinHistoryCapacity = indicator.NewEngine().Warmup()

// Default returns the built-in configuration: XRP against USD from
// CoinGecko every five minutes, logged to CSV and SQLite.
func Default() *Config {
	return &Config{
		Asset:           "ripple",
		Interval:        300 * time.Second,
		HistoryCapacity: ringbuf.DefaultCapacity,
		Thresholds:      strategy.DefaultThresholds(),
		Quote: QuoteConfig{
			Provider:   quote.ProviderCoinGecko,
			Timeout:    10 * time.Second,
			CoinID:     "ripple",
			VsCurrency: "usd",
			Precision:  4,
			Symbol:     "XRPUSDT",
			Seed:       1,
		},
		Sinks: SinksConfig{
			CSV:    CSVConfig{Enabled: true, Path: "trading_signals.csv"},
			SQLite: SQLiteConfig{Enabled: true, Path: "data/signals.db"},
			Redis: RedisConfig{
				Addr:            "localhost:6379",
				StreamMaxLen:    2100,
				LatestTTL:       30 * time.Minute,
				BufferSize:      1000,
				BreakerFailures: 5,
				BreakerReset:    10 * time.Second,
			},
			Mongo: MongoConfig{Database: "signalmon", Collection: "signals"},
		},
		Notify:      NotifyConfig{Log: true},
		MetricsAddr: ":9090",
		LogLevel:    "info",
		Console:     true,
		ReplaySize:  100,
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment, and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Asset = getEnv("ASSET", c.Asset)
	envDuration("POLL_INTERVAL", &c.Interval)
	envInt("HISTORY_CAPACITY", &c.HistoryCapacity)
	envFloat("PRICE_CHANGE_PCT", &c.Thresholds.PriceChangePct)
	envFloat("RSI_OVERBOUGHT", &c.Thresholds.RSIOverbought)
	envFloat("RSI_OVERSOLD", &c.Thresholds.RSIOversold)
	envFloat("MOMENTUM_PCT", &c.Thresholds.MomentumPct)

	c.Quote.Provider = strings.ToLower(getEnv("PRICE_PROVIDER", c.Quote.Provider))
	envDuration("PRICE_TIMEOUT", &c.Quote.Timeout)
	c.Quote.CoinID = getEnv("COINGECKO_COIN_ID", c.Quote.CoinID)
	c.Quote.VsCurrency = getEnv("VS_CURRENCY", c.Quote.VsCurrency)
	c.Quote.BaseURL = getEnv("PRICE_BASE_URL", c.Quote.BaseURL)
	c.Quote.Symbol = getEnv("BINANCE_SYMBOL", c.Quote.Symbol)
	c.Quote.APIKey = getEnv("BINANCE_API_KEY", c.Quote.APIKey)
	c.Quote.SecretKey = getEnv("BINANCE_SECRET_KEY", c.Quote.SecretKey)
	c.Quote.StreamURL = getEnv("STREAM_URL", c.Quote.StreamURL)
	envDuration("STREAM_MAX_AGE", &c.Quote.MaxAge)

	envBool("CSV_ENABLED", &c.Sinks.CSV.Enabled)
	c.Sinks.CSV.Path = getEnv("CSV_PATH", c.Sinks.CSV.Path)
	envBool("SQLITE_ENABLED", &c.Sinks.SQLite.Enabled)
	c.Sinks.SQLite.Path = getEnv("SQLITE_PATH", c.Sinks.SQLite.Path)
	envBool("REDIS_ENABLED", &c.Sinks.Redis.Enabled)
	c.Sinks.Redis.Addr = getEnv("REDIS_ADDR", c.Sinks.Redis.Addr)
	c.Sinks.Redis.Password = getEnv("REDIS_PASSWORD", c.Sinks.Redis.Password)
	envInt("REDIS_DB", &c.Sinks.Redis.DB)

	// A connection string alone enables the document and SQL sinks.
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Sinks.Mongo.Enabled = true
		c.Sinks.Mongo.URI = uri
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		c.Sinks.Postgres.Enabled = true
		c.Sinks.Postgres.DSN = dsn
	}

	c.Notify.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.Notify.TelegramToken)
	c.Notify.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
	c.Notify.WebhookURL = getEnv("WEBHOOK_URL", c.Notify.WebhookURL)

	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	envBool("CONSOLE", &c.Console)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Asset) == "" {
		errs = append(errs, errors.New("asset must not be empty"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.HistoryCapacity < MinHistoryCapacity {
		errs = append(errs, fmt.Errorf("history_capacity must be at least %d, got %d", MinHistoryCapacity, c.HistoryCapacity))
	}
	switch c.Quote.Provider {
	case quote.ProviderCoinGecko, quote.ProviderBinance, quote.ProviderSim, quote.ProviderStream:
	default:
		errs = append(errs, fmt.Errorf("unknown price provider %q", c.Quote.Provider))
	}

	th := c.Thresholds
	if th.PriceChangePct <= 0 {
		errs = append(errs, fmt.Errorf("price change threshold must be positive, got %v", th.PriceChangePct))
	}
	if th.MomentumPct <= 0 {
		errs = append(errs, fmt.Errorf("momentum threshold must be positive, got %v", th.MomentumPct))
	}
	if th.RSIOversold < 0 || th.RSIOverbought > 100 || th.RSIOversold >= th.RSIOverbought {
		errs = append(errs, fmt.Errorf("rsi thresholds must satisfy 0 <= oversold < overbought <= 100, got %v/%v", th.RSIOversold, th.RSIOverbought))
	}

	if c.Sinks.Mongo.Enabled && c.Sinks.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo sink enabled without uri"))
	}
	if c.Sinks.Postgres.Enabled && c.Sinks.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres sink enabled without dsn"))
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, errors.New("telegram needs both bot token and chat id"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// QuoteSource converts the quote section to the price source factory config.
func (c *Config) QuoteSource() quote.Config {
	return quote.Config{
		Provider:   c.Quote.Provider,
		Timeout:    c.Quote.Timeout,
		CoinID:     c.Quote.CoinID,
		VsCurrency: c.Quote.VsCurrency,
		Precision:  c.Quote.Precision,
		BaseURL:    c.Quote.BaseURL,
		Symbol:     c.Quote.Symbol,
		APIKey:     c.Quote.APIKey,
		SecretKey:  c.Quote.SecretKey,
		StreamURL:  c.Quote.StreamURL,
		MaxAge:     c.Quote.MaxAge,
		Seed:       c.Quote.Seed,
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = f
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = b
}

// envDuration accepts Go durations ("5m") or plain seconds ("300").
func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = d
}
