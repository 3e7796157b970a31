package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Oscillator.Attractor != 0.75 {
		t.Errorf("default attractor = %v, want 0.75", cfg.Oscillator.Attractor)
	}
	if cfg.Spawn.EntropyThreshold != 0.015 {
		t.Errorf("default entropy threshold = %v, want 0.015", cfg.Spawn.EntropyThreshold)
	}
	if cfg.Spawn.MaxGeneration != 3 {
		t.Errorf("default max generation = %d, want 3", cfg.Spawn.MaxGeneration)
	}
	if cfg.Resonance.GEF != 1.0 || cfg.Resonance.DecayTime != 60*time.Second {
		t.Errorf("default resonance = %+v, want gef 1.0 decay 60s", cfg.Resonance)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Store.Keep != 10000 {
		t.Errorf("default store keep = %d, want 10000", cfg.Store.Keep)
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("default metrics addr = %q, want disabled", cfg.Metrics.Addr)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
oscillator:
  attractor: 0.8
  period: 24
spawn:
  entropy_threshold: 0.02
logging:
  level: debug
metrics:
  addr: ":9100"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Oscillator.Attractor != 0.8 {
		t.Errorf("attractor = %v, want 0.8 from file", cfg.Oscillator.Attractor)
	}
	if cfg.Oscillator.Period != 24 {
		t.Errorf("period = %d, want 24 from file", cfg.Oscillator.Period)
	}
	if cfg.Spawn.EntropyThreshold != 0.02 {
		t.Errorf("entropy threshold = %v, want 0.02 from file", cfg.Spawn.EntropyThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug from file", cfg.Logging.Level)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("metrics addr = %q, want :9100 from file", cfg.Metrics.Addr)
	}

	// Options absent from the file keep their defaults.
	if cfg.Spawn.MaxGeneration != 3 {
		t.Errorf("max generation = %d, want default 3", cfg.Spawn.MaxGeneration)
	}
	if cfg.Store.Keep != 10000 {
		t.Errorf("store keep = %d, want default 10000", cfg.Store.Keep)
	}
}

func TestLoadFromFile_DecayTimeString(t *testing.T) {
	path := writeConfig(t, `
resonance:
  gef: 2.0
  decay_time: 90s
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Resonance.DecayTime != 90*time.Second {
		t.Errorf("decay time = %v, want 90s from file", cfg.Resonance.DecayTime)
	}
	if cfg.Resonance.GEF != 2.0 {
		t.Errorf("gef = %v, want 2.0 from file", cfg.Resonance.GEF)
	}
}

func TestLoadFromFile_DecayTimeNanoseconds(t *testing.T) {
	path := writeConfig(t, "resonance:\n  decay_time: 30000000000\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Resonance.DecayTime != 30*time.Second {
		t.Errorf("decay time = %v, want 30s from nanoseconds", cfg.Resonance.DecayTime)
	}
	// gef was absent from the resonance section and keeps its default.
	if cfg.Resonance.GEF != 1.0 {
		t.Errorf("gef = %v, want default 1.0", cfg.Resonance.GEF)
	}
}

func TestLoadFromFile_DecayTimeInvalid(t *testing.T) {
	path := writeConfig(t, "resonance:\n  decay_time: ninety seconds\n")

	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile accepted an unparsable decay_time")
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile succeeded on a missing file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := writeConfig(t, "oscillator: [not a mapping")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile succeeded on malformed YAML")
	}
}

func TestLoad_ExplicitMissingPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load succeeded with an explicit missing path")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RESONATE_LOG_LEVEL", "trace")
	t.Setenv("RESONATE_STORE_PATH", "/tmp/other.db")
	t.Setenv("RESONATE_METRICS_ADDR", ":9999")
	t.Setenv("RESONATE_ATTRACTOR", "0.6")
	t.Setenv("RESONATE_ENTROPY_THRESHOLD", "0.03")

	path := writeConfig(t, "logging:\n  level: info\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "trace" {
		t.Errorf("log level = %q, want env override trace", cfg.Logging.Level)
	}
	if cfg.Store.Path != "/tmp/other.db" {
		t.Errorf("store path = %q, want env override", cfg.Store.Path)
	}
	if cfg.Metrics.Addr != ":9999" {
		t.Errorf("metrics addr = %q, want env override", cfg.Metrics.Addr)
	}
	if cfg.Oscillator.Attractor != 0.6 {
		t.Errorf("attractor = %v, want env override 0.6", cfg.Oscillator.Attractor)
	}
	if cfg.Spawn.EntropyThreshold != 0.03 {
		t.Errorf("entropy threshold = %v, want env override 0.03", cfg.Spawn.EntropyThreshold)
	}
}

func TestLoad_IgnoresUnparsableEnvFloat(t *testing.T) {
	t.Setenv("RESONATE_ATTRACTOR", "not-a-number")

	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Oscillator.Attractor != 0.75 {
		t.Errorf("attractor = %v, want default 0.75 for unparsable override", cfg.Oscillator.Attractor)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"attractor out of range", func(c *Config) { c.Oscillator.Attractor = 1.5 }, "attractor"},
		{"zero period", func(c *Config) { c.Oscillator.Period = 0 }, "period"},
		{"zero entropy threshold", func(c *Config) { c.Spawn.EntropyThreshold = 0 }, "entropy_threshold"},
		{"negative max generation", func(c *Config) { c.Spawn.MaxGeneration = -1 }, "max_generation"},
		{"zero gef", func(c *Config) { c.Resonance.GEF = 0 }, "gef"},
		{"zero decay", func(c *Config) { c.Resonance.DecayTime = 0 }, "decay_time"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate passed, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
