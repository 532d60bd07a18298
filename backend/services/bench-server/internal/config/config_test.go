package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadDefaultsWithMinimalFile(t *testing.T) {
	writeConfigFile(t, "database:\n  dsn: postgres://bench\nauth:\n  jwt_secret: bench-secret\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8000" {
		t.Fatalf("address = %q, want :8000", cfg.Server.Address)
	}
	if cfg.Bench.StationCount != 12 || !cfg.Bench.Simulate || cfg.Bench.SimSeed != 42 {
		t.Fatalf("unexpected bench defaults: %+v", cfg.Bench)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Reports.Dir != "./reports" {
		t.Fatalf("unexpected defaults: redis %q, reports %q", cfg.Redis.Addr, cfg.Reports.Dir)
	}
	if cfg.Tracing.Enabled {
		t.Fatalf("tracing must default off")
	}
	if cfg.ReadTimeout() != 15*time.Second || cfg.IdleTimeout() != 60*time.Second {
		t.Fatalf("unexpected listener timeouts %v/%v", cfg.ReadTimeout(), cfg.IdleTimeout())
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, strings.Join([]string{
		"database:",
		"  dsn: postgres://bench",
		"auth:",
		"  jwt_secret: bench-secret",
		"bench:",
		"  station_count: 6",
		"  broadcast_interval_ms: 250",
	}, "\n"))
	t.Setenv("BENCH_STATION_COUNT", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bench.StationCount != 4 {
		t.Fatalf("env did not override file: %d", cfg.Bench.StationCount)
	}
	if cfg.BroadcastInterval() != 250*time.Millisecond {
		t.Fatalf("broadcast interval = %v, want 250ms", cfg.BroadcastInterval())
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		env  map[string]string
	}{
		{
			name: "missing dsn",
			body: "auth:\n  jwt_secret: bench-secret\n",
			env:  map[string]string{"DATABASE_DSN": ""},
		},
		{
			name: "missing jwt secret",
			body: "database:\n  dsn: postgres://bench\n",
			env:  map[string]string{"AUTH_JWT_SECRET": ""},
		},
		{
			name: "non-positive station count",
			body: "database:\n  dsn: postgres://bench\nauth:\n  jwt_secret: bench-secret\n",
			env:  map[string]string{"BENCH_STATION_COUNT": "0"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfigFile(t, tc.body)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDurationAccessorFallbacks(t *testing.T) {
	var cfg Config

	if cfg.ReadTimeout() != 15*time.Second || cfg.WriteTimeout() != 15*time.Second {
		t.Fatalf("unexpected read/write fallbacks %v/%v", cfg.ReadTimeout(), cfg.WriteTimeout())
	}
	if cfg.IdleTimeout() != 60*time.Second || cfg.WSWriteTimeout() != 10*time.Second {
		t.Fatalf("unexpected idle/ws fallbacks %v/%v", cfg.IdleTimeout(), cfg.WSWriteTimeout())
	}
	if cfg.SessionTTL() != 24*time.Hour || cfg.TokenTTL() != time.Hour {
		t.Fatalf("unexpected ttl fallbacks %v/%v", cfg.SessionTTL(), cfg.TokenTTL())
	}
	if cfg.BroadcastInterval() != time.Second {
		t.Fatalf("unexpected broadcast fallback %v", cfg.BroadcastInterval())
	}

	cfg.Server.ReadTimeoutSec = 30
	cfg.Auth.TokenTTLMin = 15
	cfg.Redis.SessionTTLSec = 3600
	if cfg.ReadTimeout() != 30*time.Second || cfg.TokenTTL() != 15*time.Minute || cfg.SessionTTL() != time.Hour {
		t.Fatalf("configured durations not applied: %v/%v/%v", cfg.ReadTimeout(), cfg.TokenTTL(), cfg.SessionTTL())
	}
}
