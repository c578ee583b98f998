package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, DefaultInitialEquity, cfg.Engine.InitialEquity)
	assert.Equal(t, "^GSPC", cfg.Engine.Benchmark)
	assert.Equal(t, 500, cfg.Feed.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Feed.FlushInterval)
	assert.Equal(t, time.Hour, cfg.Volatility.SampleInterval)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http_addr: ":9090"
storage:
  use_memory: true
feed:
  endpoint: "ws://localhost:7000/feed"
  symbols: [SPY, QQQ]
  flush_interval: 2s
engine:
  initial_equity: 250000
  benchmark: NASDAQ
volatility:
  symbols: [SPY]
  sample_interval: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Feed.Symbols)
	assert.Equal(t, 2*time.Second, cfg.Feed.FlushInterval)
	assert.Equal(t, 500, cfg.Feed.BatchSize, "unset keys keep defaults")
	assert.Equal(t, 250000.0, cfg.Engine.InitialEquity)
	assert.Equal(t, 30*time.Minute, cfg.Volatility.SampleInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "storage:\n  postgres_dsn: postgres://file\n")
	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://env")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("FEED_SYMBOLS", "spy, qqq ,")
	t.Setenv("INITIAL_EQUITY", "50000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Storage.PostgresDSN)
	assert.Equal(t, "clickhouse://env", cfg.Storage.ClickhouseDSN)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Feed.Symbols)
	assert.Equal(t, 50000.0, cfg.Engine.InitialEquity)
}

func TestLoad_InvalidInput(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "server: [unclosed"))
	assert.Error(t, err)

	t.Setenv("INITIAL_EQUITY", "lots")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")), "missing file is ignored")
	require.NoError(t, LoadEnvFile(""))

	t.Setenv("FEED_ENDPOINT", "")
	os.Unsetenv("FEED_ENDPOINT")
	path := writeFile(t, ".env", "FEED_ENDPOINT=ws://from-dotenv/feed\n")
	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "ws://from-dotenv/feed", os.Getenv("FEED_ENDPOINT"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"memory defaults", func(c *Config) { c.Storage.UseMemory = true }, false},
		{"missing postgres dsn", func(c *Config) { c.Storage.ClickhouseDSN = "clickhouse://x" }, true},
		{"databases configured", func(c *Config) {
			c.Storage.PostgresDSN = "postgres://x"
			c.Storage.ClickhouseDSN = "clickhouse://x"
		}, false},
		{"non-positive equity", func(c *Config) {
			c.Storage.UseMemory = true
			c.Engine.InitialEquity = 0
		}, true},
		{"invalid benchmark", func(c *Config) {
			c.Storage.UseMemory = true
			c.Engine.Benchmark = "NOT A TICKER"
		}, true},
		{"feed without symbols", func(c *Config) {
			c.Storage.UseMemory = true
			c.Feed.Endpoint = "ws://x"
		}, true},
		{"valid schedule", func(c *Config) {
			c.Storage.UseMemory = true
			c.Volatility.Symbols = []string{"SPY"}
			c.Volatility.Schedule = "5 * * * *"
		}, false},
		{"invalid schedule", func(c *Config) {
			c.Storage.UseMemory = true
			c.Volatility.Schedule = "every hour"
		}, true},
		{"empty addr", func(c *Config) {
			c.Storage.UseMemory = true
			c.Server.HTTPAddr = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
