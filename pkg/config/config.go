package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	APIKey        string        `yaml:"api_key"`
	APISecret     string        `yaml:"api_secret"`
	WebSocketURL  string        `yaml:"websocket_url"`
	RestURL       string        `yaml:"rest_url"`
	Priority      int           `yaml:"priority"`
	PingInterval  time.Duration `yaml:"ping_interval"`
	QuoteBudget   float64       `yaml:"quote_budget"`   // REST calls per second
	HistoryBudget float64       `yaml:"history_budget"` // history calls per second
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Providers struct {
		Finnhub ProviderConfig `yaml:"finnhub"`
		Alpaca  ProviderConfig `yaml:"alpaca"`
	} `yaml:"providers"`
	Aggregator struct {
		Staleness    time.Duration `yaml:"staleness"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"aggregator"`
	Signals struct {
		BuyThreshold    float64       `yaml:"buy_threshold"`
		SellThreshold   float64       `yaml:"sell_threshold"`
		StabilityWindow time.Duration `yaml:"stability_window"`
		TTL             time.Duration `yaml:"ttl"`
		SweepInterval   time.Duration `yaml:"sweep_interval"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"signals"`
	News struct {
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"news"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic"`
		QuotesTopic  string   `yaml:"quotes_topic"`
		NewsTopic    string   `yaml:"news_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Providers.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.Providers.Alpaca.APISecret = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if !c.Providers.Finnhub.Enabled && !c.Providers.Alpaca.Enabled {
		return fmt.Errorf("at least one provider must be enabled")
	}
	if c.Providers.Finnhub.Enabled && c.Providers.Finnhub.APIKey == "" {
		return fmt.Errorf("providers.finnhub.api_key is required")
	}
	if c.Providers.Alpaca.Enabled && (c.Providers.Alpaca.APIKey == "" || c.Providers.Alpaca.APISecret == "") {
		return fmt.Errorf("providers.alpaca requires api_key and api_secret")
	}
	if c.Signals.BuyThreshold < 0 {
		return fmt.Errorf("signals.buy_threshold must be non-negative")
	}
	if c.Signals.SellThreshold > 0 {
		return fmt.Errorf("signals.sell_threshold must be non-positive")
	}
	return nil
}
