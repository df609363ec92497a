package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RateConfig is one source's call budget: Limit calls per Window. Zero values
// are filled with the per-source defaults in Load.
type RateConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	DataDir     string `yaml:"data_dir" default:"data/raw" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Collection struct {
		Retries      int           `yaml:"retries" default:"3" validate:"gte=0"`
		RetryBackoff time.Duration `yaml:"retry_backoff" default:"2s"`
	} `yaml:"collection"`
	Checkpoint struct {
		Backend string `yaml:"backend" default:"file" validate:"oneof=file redis"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"histpull"`
		} `yaml:"redis"`
	} `yaml:"checkpoint"`
	Binance struct {
		Enabled     bool       `yaml:"enabled"`
		BaseURL     string     `yaml:"base_url" default:"https://api.binance.com"`
		Interval    string     `yaml:"interval" default:"30m"`
		QuoteAsset  string     `yaml:"quote_asset" default:"USDT"`
		SymbolsFile string     `yaml:"symbols_file" default:"config/symbols/coins.txt"`
		MaxCalls    int        `yaml:"max_calls" default:"87" validate:"gt=0"`
		Rate        RateConfig `yaml:"rate"`
	} `yaml:"binance"`
	Oanda struct {
		Enabled     bool       `yaml:"enabled"`
		BaseURL     string     `yaml:"base_url" default:"https://api-fxpractice.oanda.com"`
		Token       string     `yaml:"token"`
		Granularity string     `yaml:"granularity" default:"M30"`
		SymbolsFile string     `yaml:"symbols_file" default:"config/symbols/pairs.txt"`
		MaxCalls    int        `yaml:"max_calls" default:"40" validate:"gt=0"`
		Rate        RateConfig `yaml:"rate"`
	} `yaml:"oanda"`
	TwelveData struct {
		Enabled     bool       `yaml:"enabled"`
		BaseURL     string     `yaml:"base_url" default:"https://api.twelvedata.com"`
		APIKey      string     `yaml:"api_key"`
		Interval    string     `yaml:"interval" default:"30min"`
		OutputSize  int        `yaml:"output_size" default:"5000" validate:"gt=0,lte=5000"`
		SymbolsFile string     `yaml:"symbols_file" default:"config/symbols/vendor.txt"`
		MaxCalls    int        `yaml:"max_calls" default:"20" validate:"gt=0"`
		Rate        RateConfig `yaml:"rate"`
	} `yaml:"twelvedata"`
	Fred struct {
		Enabled       bool       `yaml:"enabled"`
		BaseURL       string     `yaml:"base_url" default:"https://api.stlouisfed.org/fred"`
		APIKey        string     `yaml:"api_key"`
		SeriesFile    string     `yaml:"series_file" default:"config/symbols/fred.txt"`
		LookbackYears int        `yaml:"lookback_years" default:"15" validate:"gt=0"`
		VIXDelta      bool       `yaml:"vix_delta"`
		Rate          RateConfig `yaml:"rate"`
	} `yaml:"fred"`
	Yahoo struct {
		Enabled       bool       `yaml:"enabled"`
		BaseURL       string     `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Interval      string     `yaml:"interval" default:"1d"`
		SymbolsFile   string     `yaml:"symbols_file" default:"config/symbols/equities.txt"`
		LookbackYears int        `yaml:"lookback_years" default:"15" validate:"gt=0"`
		Rate          RateConfig `yaml:"rate"`
	} `yaml:"yahoo"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"histpull.observations"`
		Compression  string        `yaml:"compression" default:"gzip"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		Linger       time.Duration `yaml:"linger" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"histpull"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"observations"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"1m"`
	} `yaml:"clickhouse"`
}

// Load reads a YAML configuration file, fills struct defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.fillRateDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, which is how credentials normally arrive.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("OANDA_KEY"); v != "" {
		c.Oanda.Token = v
	}
	if v := os.Getenv("TD_KEY"); v != "" {
		c.TwelveData.APIKey = v
	}
	if v := os.Getenv("FRED_KEY"); v != "" {
		c.Fred.APIKey = v
	} else if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Fred.APIKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Checkpoint.Redis.Addr = v
	}

	return c, nil
}

// fillRateDefaults fills the per-source rate budgets the upstreams document:
// Binance 50/min, OANDA 30/sec, TwelveData 8/min, FRED 119/min (the
// documented limit is 120), Yahoo a conservative 5/min.
func (c *Config) fillRateDefaults() {
	fill := func(r *RateConfig, limit int, window time.Duration) {
		if r.Limit == 0 {
			r.Limit = limit
		}
		if r.Window == 0 {
			r.Window = window
		}
	}
	fill(&c.Binance.Rate, 50, time.Minute)
	fill(&c.Oanda.Rate, 30, time.Second)
	fill(&c.TwelveData.Rate, 8, time.Minute)
	fill(&c.Fred.Rate, 119, time.Minute)
	fill(&c.Yahoo.Rate, 5, time.Minute)
}

// Validate checks structural invariants. Credentials are deliberately not
// checked here: a missing key disables that source at startup instead of
// failing the whole run.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("field %s failed rule %q", e.Namespace(), e.Tag())
		}
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
