// Package config loads service configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"equity-lab/internal/benchmark"
)

// DefaultInitialEquity is the account equity before any realized P&L.
const DefaultInitialEquity = 100000.0

// Config holds all application configuration.
type Config struct {
	Server struct {
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"server"`
	Storage struct {
		UseMemory     bool   `yaml:"use_memory"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
		RedisAddr     string `yaml:"redis_addr"`
	} `yaml:"storage"`
	Feed struct {
		Endpoint      string        `yaml:"endpoint"`
		Symbols       []string      `yaml:"symbols"`
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"feed"`
	Engine struct {
		InitialEquity float64 `yaml:"initial_equity"`
		Benchmark     string  `yaml:"benchmark"`
	} `yaml:"engine"`
	Volatility struct {
		Timeframe      string        `yaml:"timeframe"`
		Symbols        []string      `yaml:"symbols"`
		SampleInterval time.Duration `yaml:"sample_interval"`
		// Schedule is an optional 5-field cron expression; empty runs every SampleInterval.
		Schedule string `yaml:"schedule"`
	} `yaml:"volatility"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.HTTPAddr = ":8080"
	cfg.Feed.BatchSize = 500
	cfg.Feed.FlushInterval = 5 * time.Second
	cfg.Engine.InitialEquity = DefaultInitialEquity
	cfg.Engine.Benchmark = benchmark.DefaultSymbol
	cfg.Volatility.Timeframe = "1h"
	cfg.Volatility.SampleInterval = time.Hour
	return cfg
}

// LoadEnvFile loads variables from a .env file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("FEED_ENDPOINT"); v != "" {
		c.Feed.Endpoint = v
	}
	if v := os.Getenv("FEED_SYMBOLS"); v != "" {
		c.Feed.Symbols = splitList(v)
	}
	if v := os.Getenv("INITIAL_EQUITY"); v != "" {
		equity, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INITIAL_EQUITY: %w", err)
		}
		c.Engine.InitialEquity = equity
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if !c.Storage.UseMemory {
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required unless use_memory is set")
		}
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required unless use_memory is set")
		}
	}
	if c.Engine.InitialEquity <= 0 {
		return fmt.Errorf("engine.initial_equity must be positive")
	}
	if _, err := benchmark.ResolveSymbol(c.Engine.Benchmark); err != nil {
		return fmt.Errorf("engine.benchmark: %w", err)
	}
	if c.Feed.Endpoint != "" {
		if len(c.Feed.Symbols) == 0 {
			return fmt.Errorf("feed.symbols is required when feed.endpoint is set")
		}
		if c.Feed.BatchSize <= 0 {
			return fmt.Errorf("feed.batch_size must be positive")
		}
		if c.Feed.FlushInterval <= 0 {
			return fmt.Errorf("feed.flush_interval must be positive")
		}
	}
	if len(c.Volatility.Symbols) > 0 && c.Volatility.SampleInterval <= 0 {
		return fmt.Errorf("volatility.sample_interval must be positive")
	}
	if c.Volatility.Schedule != "" {
		if _, err := cron.ParseStandard(c.Volatility.Schedule); err != nil {
			return fmt.Errorf("volatility.schedule: %w", err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
