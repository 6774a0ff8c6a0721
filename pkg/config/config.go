package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceCSV        = "csv"
	SourceClickHouse = "clickhouse"
	SourceSQL        = "sql"
	SourceNone       = "none"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		SlowRequest     time.Duration `yaml:"slow_request"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic"`
			Interval       time.Duration `yaml:"interval"`
			CountThreshold int           `yaml:"count_threshold"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Store struct {
		Source      string        `yaml:"source"`
		CSVPath     string        `yaml:"csv_path"`
		Table       string        `yaml:"table"`
		ReloadCron  string        `yaml:"reload_cron"`
		LoadOnStart bool          `yaml:"load_on_start"`
		LoadTimeout time.Duration `yaml:"load_timeout"`
	} `yaml:"store"`
	Forecast struct {
		Horizons            []int   `yaml:"horizons"`
		Threshold           float64 `yaml:"threshold"`
		MinPrice            float64 `yaml:"min_price"`
		MinOverlap          float64 `yaml:"min_overlap"`
		MinPoints           int     `yaml:"min_points"`
		SimilarDiscount     float64 `yaml:"similar_discount"`
		CategoryDiscount    float64 `yaml:"category_discount"`
		ScaleToCurrentPrice bool    `yaml:"scale_to_current_price"`
		BatchLimit          int     `yaml:"batch_limit"`
		BatchWorkers        int     `yaml:"batch_workers"`
	} `yaml:"forecast"`
	SQL struct {
		Driver       string `yaml:"driver"`
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
	} `yaml:"sql"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		PricesTopic  string   `yaml:"prices_topic"`
		EventsTopic  string   `yaml:"events_topic"`
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
	Ingest struct {
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
		BufferSize    int           `yaml:"buffer_size"`
	} `yaml:"ingest"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Enabled     bool          `yaml:"enabled"`
			Addr        string        `yaml:"addr"`
			Password    string        `yaml:"password"`
			DB          int           `yaml:"db"`
			PoolSize    int           `yaml:"pool_size"`
			DialTimeout time.Duration `yaml:"dial_timeout"`
			OpTimeout   time.Duration `yaml:"op_timeout"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// envOverrides lists the environment variables that take precedence over YAML.
type envOverrides struct {
	Environment    string `env:"PRICEPULSE_ENV"`
	Port           int    `env:"PRICEPULSE_PORT"`
	LogLevel       string `env:"PRICEPULSE_LOG_LEVEL"`
	StoreSource    string `env:"PRICEPULSE_STORE_SOURCE"`
	CSVPath        string `env:"PRICEPULSE_CSV_PATH"`
	ReloadCron     string `env:"PRICEPULSE_RELOAD_CRON"`
	SQLDriver      string `env:"PRICEPULSE_SQL_DRIVER"`
	SQLDSN         string `env:"PRICEPULSE_SQL_DSN"`
	ClickHouseHost string `env:"CLICKHOUSE_HOST"`
	ClickHouseDB   string `env:"CLICKHOUSE_DATABASE"`
	ClickHouseUsr  string `env:"CLICKHOUSE_USER"`
	ClickHousePwd  string `env:"CLICKHOUSE_PASSWORD"`
	KafkaBrokers   string `env:"KAFKA_BROKERS"`
	PricesTopic    string `env:"KAFKA_PRICES_TOPIC"`
	EventsTopic    string `env:"KAFKA_EVENTS_TOPIC"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	Threshold      string `env:"PRICEPULSE_THRESHOLD"`
	Horizons       string `env:"PRICEPULSE_HORIZONS"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, then config from YAML, and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := envdecode.Decode(&ov); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode env: %w", err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&c.Environment, ov.Environment)
	setStr(&c.Logging.Level, ov.LogLevel)
	setStr(&c.Store.Source, ov.StoreSource)
	setStr(&c.Store.CSVPath, ov.CSVPath)
	setStr(&c.Store.ReloadCron, ov.ReloadCron)
	setStr(&c.SQL.Driver, ov.SQLDriver)
	setStr(&c.SQL.DSN, ov.SQLDSN)
	setStr(&c.ClickHouse.Host, ov.ClickHouseHost)
	setStr(&c.ClickHouse.Database, ov.ClickHouseDB)
	setStr(&c.ClickHouse.User, ov.ClickHouseUsr)
	setStr(&c.ClickHouse.Password, ov.ClickHousePwd)
	setStr(&c.Kafka.PricesTopic, ov.PricesTopic)
	setStr(&c.Kafka.EventsTopic, ov.EventsTopic)
	setStr(&c.Cache.Redis.Addr, ov.RedisAddr)
	setStr(&c.Cache.Redis.Password, ov.RedisPassword)
	if ov.Port > 0 {
		c.Server.Port = ov.Port
	}
	if ov.KafkaBrokers != "" {
		c.Kafka.Brokers = strings.Split(ov.KafkaBrokers, ",")
	}
	if ov.Threshold != "" {
		v, err := strconv.ParseFloat(ov.Threshold, 64)
		if err != nil {
			return fmt.Errorf("PRICEPULSE_THRESHOLD: %w", err)
		}
		c.Forecast.Threshold = v
	}
	if ov.Horizons != "" {
		hs, err := ParseHorizons(ov.Horizons)
		if err != nil {
			return fmt.Errorf("PRICEPULSE_HORIZONS: %w", err)
		}
		c.Forecast.Horizons = hs
	}
	return nil
}

// ParseHorizons parses a comma separated list such as "7,15,30".
func ParseHorizons(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("horizon %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 5 * time.Second
	}
	if c.Server.SlowRequest == 0 {
		c.Server.SlowRequest = time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.Collector.Interval == 0 {
		c.Logging.Collector.Interval = 30 * time.Second
	}
	if c.Logging.Collector.CountThreshold == 0 {
		c.Logging.Collector.CountThreshold = 100
	}
	if c.Store.Source == "" {
		c.Store.Source = SourceCSV
	}
	if c.Store.Table == "" {
		c.Store.Table = "price_history"
	}
	if c.Store.LoadTimeout == 0 {
		c.Store.LoadTimeout = 60 * time.Second
	}
	if len(c.Forecast.Horizons) == 0 {
		c.Forecast.Horizons = []int{7, 15, 30}
	}
	if c.Forecast.Threshold == 0 {
		c.Forecast.Threshold = 0.05
	}
	if c.Forecast.MinPrice == 0 {
		c.Forecast.MinPrice = 0.01
	}
	if c.Forecast.MinOverlap == 0 {
		c.Forecast.MinOverlap = 0.2
	}
	if c.Forecast.MinPoints == 0 {
		c.Forecast.MinPoints = 1
	}
	if c.Forecast.SimilarDiscount == 0 {
		c.Forecast.SimilarDiscount = 0.85
	}
	if c.Forecast.CategoryDiscount == 0 {
		c.Forecast.CategoryDiscount = 0.7
	}
	if c.Forecast.BatchLimit == 0 {
		c.Forecast.BatchLimit = 50
	}
	if c.Forecast.BatchWorkers == 0 {
		c.Forecast.BatchWorkers = 8
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 500
	}
	if c.Ingest.FlushInterval == 0 {
		c.Ingest.FlushInterval = 2 * time.Second
	}
	if c.Ingest.BufferSize == 0 {
		c.Ingest.BufferSize = 5000
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Second
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Store.Source {
	case SourceCSV:
		if c.Store.CSVPath == "" {
			return fmt.Errorf("store.csv_path is required for source 'csv'")
		}
	case SourceSQL:
		if c.SQL.Driver != "sqlite" && c.SQL.Driver != "postgres" {
			return fmt.Errorf("sql.driver must be 'sqlite' or 'postgres', got '%s'", c.SQL.Driver)
		}
		if c.SQL.DSN == "" {
			return fmt.Errorf("sql.dsn is required for source 'sql'")
		}
	case SourceClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for source 'clickhouse'")
		}
	case SourceNone:
	default:
		return fmt.Errorf("store.source must be one of csv, sql, clickhouse, none, got '%s'", c.Store.Source)
	}

	prev := 0
	for i, h := range c.Forecast.Horizons {
		if h <= 0 || (i > 0 && h <= prev) {
			return fmt.Errorf("forecast.horizons must be positive and strictly ascending")
		}
		prev = h
	}
	if c.Forecast.Threshold <= 0 || c.Forecast.Threshold >= 1 {
		return fmt.Errorf("forecast.threshold must be in (0,1), got %v", c.Forecast.Threshold)
	}
	if c.Forecast.MinPrice <= 0 {
		return fmt.Errorf("forecast.min_price must be positive")
	}
	if c.Forecast.MinOverlap <= 0 || c.Forecast.MinOverlap > 1 {
		return fmt.Errorf("forecast.min_overlap must be in (0,1]")
	}
	for name, d := range map[string]float64{
		"similar_discount":  c.Forecast.SimilarDiscount,
		"category_discount": c.Forecast.CategoryDiscount,
	} {
		if d <= 0 || d > 1 {
			return fmt.Errorf("forecast.%s must be in (0,1]", name)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Logging.Collector.Enabled && (!c.Kafka.Enabled || c.Logging.Collector.Topic == "") {
		return fmt.Errorf("logging.collector requires kafka and a topic")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}
