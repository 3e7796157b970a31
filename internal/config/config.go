// Package config provides unified configuration loading for resonate.
// It supports loading from YAML files and environment variables. Every
// recognized option is enumerated here with an explicit default; there
// are no implicit fallback chains at use sites.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/variant"
)

// Config contains all resonate configuration settings.
type Config struct {
	// Oscillator configures the reference coherence source.
	Oscillator coherence.Config `json:"oscillator" yaml:"oscillator"`

	// Spawn gates the variant spawner.
	Spawn variant.SpawnConditions `json:"spawn" yaml:"spawn"`

	// Resonance configures pairwise re-weighting.
	Resonance ResonanceConfig `json:"resonance" yaml:"resonance"`

	// Logging contains settings for operational and cycle-trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures coherence log persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// ResonanceConfig configures the pairwise resonance metric.
type ResonanceConfig struct {
	// GEF is the global scaling multiplier. Default: 1.0.
	GEF float64 `json:"gef" yaml:"gef"`

	// DecayTime is the time separation at which resonance decays to 1/e.
	// Default: 60s.
	DecayTime time.Duration `json:"decay_time" yaml:"decay_time"`
}

// UnmarshalYAML accepts decay_time as a duration string ("60s", "2m") or
// integer nanoseconds. Options absent from the node keep their prior
// values.
func (rc *ResonanceConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		GEF       *float64  `yaml:"gef"`
		DecayTime yaml.Node `yaml:"decay_time"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.GEF != nil {
		rc.GEF = *raw.GEF
	}
	if !raw.DecayTime.IsZero() {
		var ns int64
		if err := raw.DecayTime.Decode(&ns); err == nil {
			rc.DecayTime = time.Duration(ns)
			return nil
		}
		var s string
		if err := raw.DecayTime.Decode(&s); err != nil {
			return fmt.Errorf("parsing resonance decay_time: %w", err)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parsing resonance decay_time %q: %w", s, err)
		}
		rc.DecayTime = d
	}
	return nil
}

// LoggingConfig configures resonate's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables cycle tracing to <dir>/cycles.jsonl.
	Level string `json:"level" yaml:"level"`

	// Dir is the directory for trace output. Default: ".resonate".
	Dir string `json:"dir" yaml:"dir"`
}

// StoreConfig configures coherence log persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Default: ".resonate/coherence.db".
	Path string `json:"path" yaml:"path"`

	// Keep caps the number of retained log rows; older rows are pruned.
	// 0 disables pruning. Default: 10000.
	Keep int `json:"keep" yaml:"keep"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the
	// endpoint. Default: "".
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a Config with every option at its default.
func Default() *Config {
	return &Config{
		Oscillator: coherence.DefaultConfig(),
		Spawn:      variant.DefaultSpawnConditions(),
		Resonance: ResonanceConfig{
			GEF:       1.0,
			DecayTime: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".resonate",
		},
		Store: StoreConfig{
			Path: filepath.Join(".resonate", "coherence.db"),
			Keep: 10000,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// Load loads configuration from path when non-empty, otherwise from
// .resonate/config.yaml if present, otherwise defaults. Environment
// variable overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidate := filepath.Join(".resonate", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Options
// absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.Oscillator.Attractor < 0 || c.Oscillator.Attractor > 1 {
		return fmt.Errorf("oscillator attractor must be in [0,1], got %f", c.Oscillator.Attractor)
	}
	if c.Oscillator.Period <= 0 {
		return fmt.Errorf("oscillator period must be positive, got %d", c.Oscillator.Period)
	}
	if c.Spawn.EntropyThreshold <= 0 {
		return fmt.Errorf("spawn entropy_threshold must be positive, got %f", c.Spawn.EntropyThreshold)
	}
	if c.Spawn.MaxGeneration < 0 {
		return fmt.Errorf("spawn max_generation must be non-negative, got %d", c.Spawn.MaxGeneration)
	}
	if c.Resonance.GEF <= 0 {
		return fmt.Errorf("resonance gef must be positive, got %f", c.Resonance.GEF)
	}
	if c.Resonance.DecayTime <= 0 {
		return fmt.Errorf("resonance decay_time must be positive, got %v", c.Resonance.DecayTime)
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies RESONATE_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESONATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RESONATE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("RESONATE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("RESONATE_ATTRACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Oscillator.Attractor = f
		}
	}
	if v := os.Getenv("RESONATE_ENTROPY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Spawn.EntropyThreshold = f
		}
	}
}
