// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/topic-harvester/internal/source/wikipedia"
	"github.com/JakeFAU/topic-harvester/internal/strategy"
)

// DefaultTerm is searched when no usable term is supplied.
const DefaultTerm = "generative artificial intelligence"

// EnvPrefix scopes environment overrides, e.g. HARVESTER_RUN_MODE.
const EnvPrefix = "HARVESTER"

// Config captures all knobs loaded via Viper.
type Config struct {
	Source  wikipedia.Config `mapstructure:"source"`
	Run     RunConfig        `mapstructure:"run"`
	Logging LoggingConfig    `mapstructure:"logging"`
}

// RunConfig controls a single harvest.
type RunConfig struct {
	Term       string `mapstructure:"term"`
	Mode       string `mapstructure:"mode"`
	MaxResults int    `mapstructure:"max_results"`
	// Workers of 0 selects the mode's default pool size.
	Workers     int    `mapstructure:"workers"`
	OutputDir   string `mapstructure:"output_dir"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied Viper, typically one with CLI flags
// already bound so they take precedence over file and environment.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.endpoint", wikipedia.DefaultEndpoint)
	v.SetDefault("source.user_agent", "topic-harvester/0.1 (+https://github.com/JakeFAU/topic-harvester)")
	v.SetDefault("source.timeout", 15*time.Second)
	v.SetDefault("source.rate_limit.enabled", true)
	v.SetDefault("source.rate_limit.min_interval", wikipedia.DefaultMinInterval)
	v.SetDefault("run.term", "")
	v.SetDefault("run.mode", string(strategy.ModeSequential))
	v.SetDefault("run.max_results", 10)
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.output_dir", "wiki_dl")
	v.SetDefault("run.metrics_file", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := strategy.ParseMode(c.Run.Mode); err != nil {
		return fmt.Errorf("run.mode: %w", err)
	}
	if c.Run.MaxResults < 0 {
		return fmt.Errorf("run.max_results must be >= 0")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must be >= 0")
	}
	if strings.TrimSpace(c.Run.OutputDir) == "" {
		return fmt.Errorf("run.output_dir must be set")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be > 0")
	}
	if c.Source.RateLimit.Enabled && c.Source.RateLimit.MinInterval <= 0 {
		return fmt.Errorf("source.rate_limit.min_interval must be > 0 when rate limiting is enabled")
	}
	return nil
}

// Mode returns the validated execution mode.
func (c Config) Mode() strategy.Mode {
	m, _ := strategy.ParseMode(c.Run.Mode)
	return m
}

// CoerceTerm trims raw and falls back to DefaultTerm when fewer than four
// characters remain.
func CoerceTerm(raw string) string {
	term := strings.TrimSpace(raw)
	if len([]rune(term)) < 4 {
		return DefaultTerm
	}
	return term
}
