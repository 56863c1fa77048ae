package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradeloop/internal/domain"
)

// Market holds exchange session settings.
type Market struct {
	Timezone        string `yaml:"timezone"`
	OpenTime        string `yaml:"open_time"`  // "09:30"
	CloseTime       string `yaml:"close_time"` // "16:00"
	ClosingSoonMins int    `yaml:"closing_soon_minutes"`
}

// Screening holds ticker screening settings.
type Screening struct {
	Universe           []string `yaml:"universe"`
	WindowDays         int      `yaml:"window_days"`
	LiquidityQuantile  float64  `yaml:"liquidity_quantile"`
	EarningsBufferDays int      `yaml:"earnings_buffer_days"`
}

// Optimization holds grid-search settings.
type Optimization struct {
	StartingCash    float64 `yaml:"starting_cash"`
	MaxHistoryYears int     `yaml:"max_history_years"`
	Workers         int     `yaml:"workers"` // 0 = GOMAXPROCS
}

// Storage holds the persistence DSNs.
type Storage struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// MarketData holds the price/earnings source settings.
type MarketData struct {
	BaseURL        string `yaml:"base_url"`
	StreamURL      string `yaml:"stream_url"`
	RatePerMinute  int    `yaml:"rate_per_minute"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Kafka holds the execution-boundary event settings.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Metrics holds the Prometheus endpoint settings.
type Metrics struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Loop holds control-loop cadence settings.
type Loop struct {
	CronSpec string `yaml:"cron_spec"` // with seconds field
}

// Root is the full daemon configuration.
type Root struct {
	Market       Market                `yaml:"market"`
	Screening    Screening             `yaml:"screening"`
	Optimization Optimization          `yaml:"optimization"`
	Storage      Storage               `yaml:"storage"`
	MarketData   MarketData            `yaml:"market_data"`
	Kafka        Kafka                 `yaml:"kafka"`
	Metrics      Metrics               `yaml:"metrics"`
	Loop         Loop                  `yaml:"loop"`
	Catalogue    []domain.ParameterSet `yaml:"catalogue"`
}

// Load reads and parses a YAML configuration file, applying defaults for
// omitted fields.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}

	if c.Market.Timezone == "" {
		c.Market.Timezone = "America/New_York"
	}
	if c.Market.OpenTime == "" {
		c.Market.OpenTime = "09:30"
	}
	if c.Market.CloseTime == "" {
		c.Market.CloseTime = "16:00"
	}
	if c.Market.ClosingSoonMins == 0 {
		c.Market.ClosingSoonMins = 15
	}
	if c.Screening.WindowDays == 0 {
		c.Screening.WindowDays = 60
	}
	if c.Screening.LiquidityQuantile == 0 {
		c.Screening.LiquidityQuantile = 0.5
	}
	if c.Screening.EarningsBufferDays == 0 {
		c.Screening.EarningsBufferDays = 5
	}
	if c.Optimization.StartingCash == 0 {
		c.Optimization.StartingCash = 10000
	}
	if c.Optimization.MaxHistoryYears == 0 {
		c.Optimization.MaxHistoryYears = 30
	}
	if c.MarketData.RatePerMinute == 0 {
		c.MarketData.RatePerMinute = 60
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 30
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "tradeloop.execution"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":2112"
	}
	if c.Loop.CronSpec == "" {
		c.Loop.CronSpec = "0 */5 * * * *"
	}

	return c, nil
}
