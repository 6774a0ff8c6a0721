package clickhouse

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Option tunes a Config before the pool is opened.
type Option func(*Config)

// Config describes the price history database.
type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	HTTP            bool
	Compress        bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	MaxExecTime     time.Duration
	PingTimeout     time.Duration
}

func defaultConfig() *Config {
	return &Config{
		Port:            9000,
		Database:        "default",
		User:            "default",
		Compress:        true,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// WithAddr sets host and port. A zero port keeps the protocol default.
func WithAddr(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Database = name
		}
	}
}

func WithCredentials(user, password string) Option {
	return func(c *Config) {
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

// WithHTTP switches to the HTTP interface (port 8123 unless set).
func WithHTTP(enabled bool) Option {
	return func(c *Config) {
		c.HTTP = enabled
		if enabled && c.Port == 9000 {
			c.Port = 8123
		}
	}
}

func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(c *Config) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle >= 0 {
			c.MaxIdleConns = maxIdle
		}
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

// WithTimeouts sets dial and read timeouts; zero values keep the defaults.
func WithTimeouts(dial, read time.Duration) Option {
	return func(c *Config) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithMaxExecutionTime bounds server side query time.
func WithMaxExecutionTime(d time.Duration) Option {
	return func(c *Config) { c.MaxExecTime = d }
}

func (c *Config) validate() error {
	if c.Host == "" {
		return errors.New("clickhouse: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("clickhouse: invalid port %d", c.Port)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("clickhouse: max idle conns %d exceeds max open %d", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// options maps Config onto the driver's native options.
func (c *Config) options() *ch.Options {
	opts := &ch.Options{
		Addr: []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))},
		Auth: ch.Auth{
			Database: c.Database,
			Username: c.User,
			Password: c.Password,
		},
		Protocol:        ch.Native,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
	if c.HTTP {
		opts.Protocol = ch.HTTP
	}
	if c.Compress {
		method := ch.CompressionLZ4
		if c.HTTP {
			method = ch.CompressionGZIP
		}
		opts.Compression = &ch.Compression{Method: method}
	}
	if c.MaxExecTime > 0 {
		opts.Settings = ch.Settings{"max_execution_time": int(c.MaxExecTime.Seconds())}
	}
	return opts
}
