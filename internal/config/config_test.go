package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/topic-harvester/internal/source/wikipedia"
	"github.com/JakeFAU/topic-harvester/internal/strategy"
)

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  endpoint: https://de.wikipedia.org/w/api.php
  user_agent: test-agent
  timeout: 30s
  rate_limit:
    enabled: true
    min_interval: 200ms
run:
  term: quantum computing
  mode: threads
  max_results: 25
  workers: 6
  output_dir: out
  metrics_file: out/metrics.prom
logging:
  development: true
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.Endpoint != "https://de.wikipedia.org/w/api.php" {
		t.Fatalf("unexpected endpoint %q", cfg.Source.Endpoint)
	}
	if cfg.Source.UserAgent != "test-agent" {
		t.Fatalf("unexpected user agent %q", cfg.Source.UserAgent)
	}
	if cfg.Source.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Source.Timeout)
	}
	if cfg.Source.RateLimit.MinInterval != 200*time.Millisecond {
		t.Fatalf("unexpected min interval %v", cfg.Source.RateLimit.MinInterval)
	}
	if cfg.Run.Term != "quantum computing" || cfg.Mode() != strategy.ModeThreads {
		t.Fatalf("unexpected run config %+v", cfg.Run)
	}
	if cfg.Run.MaxResults != 25 || cfg.Run.Workers != 6 {
		t.Fatalf("unexpected limits %+v", cfg.Run)
	}
	if cfg.Run.OutputDir != "out" || cfg.Run.MetricsFile != "out/metrics.prom" {
		t.Fatalf("unexpected paths %+v", cfg.Run)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Endpoint != wikipedia.DefaultEndpoint {
		t.Fatalf("unexpected endpoint %q", cfg.Source.Endpoint)
	}
	if !cfg.Source.RateLimit.Enabled || cfg.Source.RateLimit.MinInterval != wikipedia.DefaultMinInterval {
		t.Fatalf("unexpected rate limit %+v", cfg.Source.RateLimit)
	}
	if cfg.Mode() != strategy.ModeSequential {
		t.Fatalf("unexpected mode %q", cfg.Run.Mode)
	}
	if cfg.Run.MaxResults != 10 || cfg.Run.Workers != 0 || cfg.Run.OutputDir != "wiki_dl" {
		t.Fatalf("unexpected run defaults %+v", cfg.Run)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging by default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HARVESTER_RUN_MODE", "procs")
	t.Setenv("HARVESTER_RUN_MAX_RESULTS", "3")
	t.Setenv("HARVESTER_SOURCE_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode() != strategy.ModeProcs || cfg.Run.MaxResults != 3 {
		t.Fatalf("env overrides not applied: %+v", cfg.Run)
	}
	if cfg.Source.RateLimit.Enabled {
		t.Fatal("expected rate limiting disabled via env")
	}
}

func TestLoadWithPresetValuesWins(t *testing.T) {
	v := viper.New()
	v.Set("run.mode", "threads")
	v.Set("run.workers", 12)

	cfg, err := LoadWith(v, "")
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.Mode() != strategy.ModeThreads || cfg.Run.Workers != 12 {
		t.Fatalf("explicit values lost: %+v", cfg.Run)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Source: wikipedia.Config{Timeout: time.Second},
			Run:    RunConfig{Mode: "seq", MaxResults: 10, OutputDir: "out"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad mode", mutate: func(c *Config) { c.Run.Mode = "async" }, wantErr: "run.mode"},
		{name: "negative max", mutate: func(c *Config) { c.Run.MaxResults = -1 }, wantErr: "max_results"},
		{name: "negative workers", mutate: func(c *Config) { c.Run.Workers = -2 }, wantErr: "workers"},
		{name: "empty output", mutate: func(c *Config) { c.Run.OutputDir = " " }, wantErr: "output_dir"},
		{name: "zero timeout", mutate: func(c *Config) { c.Source.Timeout = 0 }, wantErr: "timeout"},
		{name: "rate limit without interval", mutate: func(c *Config) {
			c.Source.RateLimit.Enabled = true
		}, wantErr: "min_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCoerceTerm(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":              DefaultTerm,
		"  ai ":         DefaultTerm,
		"abc":           DefaultTerm,
		"  rust  ":      "rust",
		"quantum field": "quantum field",
	}
	for in, want := range cases {
		if got := CoerceTerm(in); got != want {
			t.Fatalf("CoerceTerm(%q) = %q, want %q", in, got, want)
		}
	}
}
