// Package config loads covpatch settings from .covpatch.yaml, COVPATCH_* environment
// variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const (
	// FileName is the config file name without extension.
	FileName = ".covpatch"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "COVPATCH"

	// ConcurrencyCooperative counts with plain slots; the runtime never runs probes in parallel.
	ConcurrencyCooperative = "cooperative"
	// ConcurrencyParallel counts with atomic slots.
	ConcurrencyParallel = "parallel"
)

// Config holds all configuration for covpatch.
type Config struct {
	Include     []string    `mapstructure:"include" yaml:"include"`
	Exclude     []string    `mapstructure:"exclude" yaml:"exclude"`
	BaseID      int         `mapstructure:"base_id" yaml:"base_id"`
	Concurrency string      `mapstructure:"concurrency" yaml:"concurrency"`
	Workers     int         `mapstructure:"workers" yaml:"workers"`
	OutDir      string      `mapstructure:"out_dir" yaml:"out_dir"`
	ReportsDir  string      `mapstructure:"reports_dir" yaml:"reports_dir"`
	CacheDir    string      `mapstructure:"cache_dir" yaml:"cache_dir"`
	Stats       StatsConfig `mapstructure:"stats" yaml:"stats"`
	Log         LogConfig   `mapstructure:"log" yaml:"log"`
}

// StatsConfig configures the runtime stats view.
type StatsConfig struct {
	Limit             int    `mapstructure:"limit" yaml:"limit"`
	MinHits           uint64 `mapstructure:"min_hits" yaml:"min_hits"`
	IncludeStatements bool   `mapstructure:"include_statements" yaml:"include_statements"`
	IncludeFunctions  bool   `mapstructure:"include_functions" yaml:"include_functions"`
	IncludeBranches   bool   `mapstructure:"include_branches" yaml:"include_branches"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	JSON    bool `mapstructure:"json" yaml:"json"`
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultExclude lists the vendored roots Roblox projects commonly carry.
var DefaultExclude = []string{"Packages", "DevPackages", "ServerPackages", "node_modules"}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("include", []string{"."})
	v.SetDefault("exclude", DefaultExclude)
	v.SetDefault("base_id", 0)
	v.SetDefault("concurrency", ConcurrencyCooperative)
	v.SetDefault("workers", 4)
	v.SetDefault("out_dir", filepath.Join(".covpatch", "instrumented"))
	v.SetDefault("reports_dir", "coverage")
	v.SetDefault("cache_dir", filepath.Join(".covpatch", "cache"))

	stats := m.DefaultStatsOptions()
	v.SetDefault("stats.limit", stats.Limit)
	v.SetDefault("stats.min_hits", stats.MinHits)
	v.SetDefault("stats.include_statements", !stats.ExcludeStatements)
	v.SetDefault("stats.include_functions", !stats.ExcludeFunctions)
	v.SetDefault("stats.include_branches", !stats.ExcludeBranches)

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)
}

// New returns a Viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	return v
}

// Load reads configFile, or .covpatch.yaml from the working directory when
// configFile is empty, and unmarshals the merged settings. A missing implicit
// config file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := New()

	var cfg Config
	_ = v.Unmarshal(&cfg)

	return &cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Concurrency {
	case ConcurrencyCooperative, ConcurrencyParallel:
	default:
		return fmt.Errorf("invalid concurrency %q: must be %q or %q", c.Concurrency, ConcurrencyCooperative, ConcurrencyParallel)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.BaseID < 0 {
		return fmt.Errorf("base_id must not be negative, got %d", c.BaseID)
	}

	if c.Stats.Limit < 0 {
		return fmt.Errorf("stats.limit must not be negative, got %d", c.Stats.Limit)
	}

	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}

	return nil
}

// IncludeScopes returns the include roots as scopes.
func (c *Config) IncludeScopes() []m.Scope {
	return toScopes(c.Include)
}

// ExcludeScopes returns the exclude roots as scopes.
func (c *Config) ExcludeScopes() []m.Scope {
	return toScopes(c.Exclude)
}

// StatsOptions converts the stats section to summarizer options. A limit of 0
// shows every entry.
func (c *Config) StatsOptions() m.StatsOptions {
	limit := c.Stats.Limit
	if limit == 0 {
		limit = m.NoLimit
	}

	return m.StatsOptions{
		Limit:             limit,
		MinHits:           c.Stats.MinHits,
		ExcludeStatements: !c.Stats.IncludeStatements,
		ExcludeFunctions:  !c.Stats.IncludeFunctions,
		ExcludeBranches:   !c.Stats.IncludeBranches,
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

func toScopes(raw []string) []m.Scope {
	scopes := make([]m.Scope, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			scopes = append(scopes, m.Scope(part).Normalize())
		}
	}

	return scopes
}
