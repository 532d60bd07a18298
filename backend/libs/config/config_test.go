package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Server struct {
		Address        string `yaml:"address"`
		ReadTimeoutSec int    `yaml:"read_timeout_sec"`
	} `yaml:"server"`
	Bench struct {
		StationCount int     `yaml:"station_count"`
		Simulate     bool    `yaml:"simulate"`
		TempLimitC   float64 `yaml:"temp_limit_c"`
	} `yaml:"bench"`
	Refresh time.Duration `yaml:"-" env:"REFRESH"`
	Secret  string        `yaml:"-" env:"BENCH_SECRET"`
	Skipped string        `env:"-"`
}

func TestLoadDefaultsSurviveWithoutSources(t *testing.T) {
	var cfg testConfig
	cfg.Server.Address = ":8000"
	cfg.Bench.StationCount = 12

	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8000" || cfg.Bench.StationCount != 12 {
		t.Fatalf("defaults were clobbered: %+v", cfg)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  address: \":9000\"\n  read_timeout_sec: 30\nbench:\n  station_count: 6\n  simulate: true\n  temp_limit_c: 57.5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Server.ReadTimeoutSec != 30 || cfg.Bench.StationCount != 6 {
		t.Fatalf("ints not loaded: %+v", cfg)
	}
	if !cfg.Bench.Simulate || cfg.Bench.TempLimitC != 57.5 {
		t.Fatalf("bool/float not loaded: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  address: \":9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_ADDRESS", ":7000")
	t.Setenv("BENCH_STATION_COUNT", "3")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7000" {
		t.Fatalf("env did not override file: %q", cfg.Server.Address)
	}
	if cfg.Bench.StationCount != 3 {
		t.Fatalf("nested env key not applied: %d", cfg.Bench.StationCount)
	}
}

func TestExplicitEnvTag(t *testing.T) {
	t.Setenv("BENCH_SECRET", "s3cret")
	t.Setenv("REFRESH", "750ms")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Secret != "s3cret" {
		t.Fatalf("env tag ignored: %q", cfg.Secret)
	}
	if cfg.Refresh != 750*time.Millisecond {
		t.Fatalf("duration = %v, want 750ms", cfg.Refresh)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BENCH_STATION_COUNT", "a dozen")

	var cfg testConfig
	if err := Load(&cfg); err == nil {
		t.Fatal("expected parse error for non-numeric int")
	}
}

func TestLoadRejectsNonStructTarget(t *testing.T) {
	var n int
	if err := Load(&n); err == nil {
		t.Fatal("expected error for non-struct target")
	}
	if err := Load(nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}
