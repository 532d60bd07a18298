package config

import (
	"errors"
	"strings"
	"time"

	libconfig "cellbench/backend/libs/config"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address         string `yaml:"address" env:"SERVER_ADDRESS"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec" env:"SERVER_READ_TIMEOUT_SEC"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec" env:"SERVER_WRITE_TIMEOUT_SEC"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_sec" env:"SERVER_IDLE_TIMEOUT_SEC"`
}

// DatabaseConfig holds postgres settings.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// RedisConfig holds the active-session store settings. An empty addr
// disables redis; the server then runs without the warm active set.
type RedisConfig struct {
	Addr          string `yaml:"addr" env:"REDIS_ADDR"`
	Password      string `yaml:"password" env:"REDIS_PASSWORD"`
	DB            int    `yaml:"db" env:"REDIS_DB"`
	SessionTTLSec int    `yaml:"session_ttl_sec" env:"REDIS_SESSION_TTL_SEC"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTLMin int    `yaml:"token_ttl_min" env:"AUTH_TOKEN_TTL_MIN"`
}

// BenchConfig holds bench shape and broadcast cadence.
type BenchConfig struct {
	StationCount        int   `yaml:"station_count" env:"BENCH_STATION_COUNT"`
	BroadcastIntervalMS int   `yaml:"broadcast_interval_ms" env:"BENCH_BROADCAST_INTERVAL_MS"`
	Simulate            bool  `yaml:"simulate" env:"BENCH_SIMULATE"`
	SimSeed             int64 `yaml:"sim_seed" env:"BENCH_SIM_SEED"`
}

// WSConfig holds per-connection websocket settings.
type WSConfig struct {
	WriteTimeoutSec int `yaml:"write_timeout_sec" env:"WS_WRITE_TIMEOUT_SEC"`
	SendBuffer      int `yaml:"send_buffer" env:"WS_SEND_BUFFER"`
}

// ReportsConfig holds PDF output settings.
type ReportsConfig struct {
	Dir string `yaml:"dir" env:"REPORTS_DIR"`
}

// TracingConfig toggles the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" env:"TRACING_ENABLED"`
}

// Config defines bench server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Bench    BenchConfig    `yaml:"bench"`
	WS       WSConfig       `yaml:"ws"`
	Reports  ReportsConfig  `yaml:"reports"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// Load reads configuration via the shared helper and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			IdleTimeoutSec:  60,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			SessionTTLSec: 86400,
		},
		Auth: AuthConfig{
			TokenTTLMin: 60,
		},
		Bench: BenchConfig{
			StationCount:        12,
			BroadcastIntervalMS: 1000,
			Simulate:            true,
			SimSeed:             42,
		},
		WS: WSConfig{
			WriteTimeoutSec: 10,
			SendBuffer:      32,
		},
		Reports: ReportsConfig{
			Dir: "./reports",
		},
	}

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: auth jwt secret required")
	}
	if cfg.Bench.StationCount < 1 {
		return nil, errors.New("config: station count must be positive")
	}
	return cfg, nil
}

// ReadTimeout returns the listener read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return secondsOr(c.Server.ReadTimeoutSec, 15*time.Second)
}

// WriteTimeout returns the listener write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return secondsOr(c.Server.WriteTimeoutSec, 15*time.Second)
}

// IdleTimeout returns the listener idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return secondsOr(c.Server.IdleTimeoutSec, 60*time.Second)
}

// SessionTTL returns the redis active-session TTL.
func (c *Config) SessionTTL() time.Duration {
	return secondsOr(c.Redis.SessionTTLSec, 24*time.Hour)
}

// TokenTTL returns the JWT lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.TokenTTLMin) * time.Minute
}

// BroadcastInterval returns the snapshot broadcast cadence.
func (c *Config) BroadcastInterval() time.Duration {
	if c.Bench.BroadcastIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Bench.BroadcastIntervalMS) * time.Millisecond
}

// WSWriteTimeout returns the per-frame websocket write deadline.
func (c *Config) WSWriteTimeout() time.Duration {
	return secondsOr(c.WS.WriteTimeoutSec, 10*time.Second)
}

func secondsOr(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}
