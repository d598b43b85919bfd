package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			RPS     float64 `yaml:"rps" default:"20"`
			Burst   int     `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"json"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"powerpull-logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Store struct {
		Driver string `yaml:"driver" default:"sqlite"`
		Table  string `yaml:"table" default:"market_snapshots"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	} `yaml:"clickhouse"`
	SQLite struct {
		Path string `yaml:"path" default:"data/powerpull.db"`
	} `yaml:"sqlite"`
	FlatFile struct {
		Path       string        `yaml:"path"`
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
		ImportCron string        `yaml:"import_cron"`
	} `yaml:"flatfile"`
	Pipeline struct {
		Timezone       string             `yaml:"timezone" default:"Asia/Kolkata"`
		HourConvention string             `yaml:"hour_convention" default:"beginning"`
		GapFill        string             `yaml:"gap_fill" default:"partial"`
		BaselinePrice  float64            `yaml:"baseline_price" default:"4000"`
		Baselines      map[string]float64 `yaml:"baselines"`
		Jitter         float64            `yaml:"jitter" default:"0.05"`
		DailyJitter    float64            `yaml:"daily_jitter" default:"0.03"`
		Seed           int64              `yaml:"seed"`
		RealOnlyStats  bool               `yaml:"real_only_stats"`
		HourlySource   string             `yaml:"hourly_source" default:"remote"`
		DailySource    string             `yaml:"daily_source" default:"flatfile"`
	} `yaml:"pipeline"`
	Redis struct {
		Enabled       bool          `yaml:"enabled"`
		Host          string        `yaml:"host" default:"localhost"`
		Port          int           `yaml:"port" default:"6379"`
		Password      string        `yaml:"password"`
		DB            int           `yaml:"db"`
		PoolSize      int           `yaml:"pool_size" default:"10"`
		Prefix        string        `yaml:"prefix" default:"powerpull"`
		// GenerationTTL also bounds idle sessions of the in-process store.
		GenerationTTL time.Duration `yaml:"generation_ttl" default:"1h"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		IngestTopic string   `yaml:"ingest_topic" default:"market-snapshots"`
		Compression string   `yaml:"compression" default:"gzip"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"powerpull-ingest"`
			OffsetReset string        `yaml:"offset_reset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"2"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic    string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
		Batcher struct {
			BatchSize     int           `yaml:"batch_size" default:"500"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
			MaxBuffer     int           `yaml:"max_buffer" default:"50000"`
		} `yaml:"batcher"`
	} `yaml:"kafka"`
}

// Default returns a configuration holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("POWERPULL_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("POWERPULL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("POWERPULL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("POWERPULL_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("POWERPULL_SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := getenv("POWERPULL_FLATFILE_PATH"); v != "" {
		c.FlatFile.Path = v
	}
	if v := getenv("POWERPULL_FLATFILE_URL"); v != "" {
		c.FlatFile.URL = v
	}
	if v := getenv("POWERPULL_GAP_FILL"); v != "" {
		c.Pipeline.GapFill = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_INGEST_TOPIC"); v != "" {
		c.Kafka.IngestTopic = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for store.driver sqlite")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for store.driver clickhouse")
		}
	default:
		return fmt.Errorf("store.driver must be 'sqlite' or 'clickhouse', got '%s'", c.Store.Driver)
	}
	for _, src := range []string{c.Pipeline.HourlySource, c.Pipeline.DailySource} {
		if src != "remote" && src != "flatfile" {
			return fmt.Errorf("pipeline sources must be 'remote' or 'flatfile', got '%s'", src)
		}
		if src == "flatfile" && c.FlatFile.Path == "" && c.FlatFile.URL == "" {
			return fmt.Errorf("flatfile.path or flatfile.url is required when a flatfile source is used")
		}
	}
	switch c.Pipeline.GapFill {
	case "off", "partial", "always":
	default:
		return fmt.Errorf("pipeline.gap_fill must be off, partial or always, got '%s'", c.Pipeline.GapFill)
	}
	switch c.Pipeline.HourConvention {
	case "beginning", "ending":
	default:
		return fmt.Errorf("pipeline.hour_convention must be beginning or ending, got '%s'", c.Pipeline.HourConvention)
	}
	if c.Pipeline.Jitter < 0 || c.Pipeline.Jitter >= 1 || c.Pipeline.DailyJitter < 0 || c.Pipeline.DailyJitter >= 1 {
		return fmt.Errorf("pipeline jitter must be in [0, 1)")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}
	if c.FlatFile.ImportCron != "" && c.FlatFile.Path == "" && c.FlatFile.URL == "" {
		return fmt.Errorf("flatfile.import_cron needs flatfile.path or flatfile.url")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.IngestTopic == "" {
			return fmt.Errorf("kafka.ingest_topic is required")
		}
	}
	if c.Logging.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collector needs kafka to be enabled")
	}
	return nil
}
