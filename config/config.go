// Package config centralises runtime configuration for respool binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PoolConfig sets pool sizing and acquisition behaviour.
type PoolConfig struct {
	// InitialCapacity is the number of tokens the pool is seeded with.
	InitialCapacity int `yaml:"initialCapacity"`
	// AcquireTimeout bounds blocking acquisitions; zero waits indefinitely.
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
	// Workers is the number of concurrent callers the bench harness runs.
	Workers int `yaml:"workers"`
	// Rate caps harness acquisitions per second; zero means unpaced.
	Rate float64 `yaml:"rate"`
}

// UnmarshalYAML decodes pool settings, accepting Go duration strings such as
// "250ms" for acquireTimeout. Absent keys leave the receiver untouched so
// file values layer over defaults.
func (p *PoolConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawPoolConfig struct {
		InitialCapacity *int     `yaml:"initialCapacity"`
		AcquireTimeout  string   `yaml:"acquireTimeout"`
		Workers         *int     `yaml:"workers"`
		Rate            *float64 `yaml:"rate"`
	}
	var raw rawPoolConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.InitialCapacity != nil {
		p.InitialCapacity = *raw.InitialCapacity
	}
	if raw.Workers != nil {
		p.Workers = *raw.Workers
	}
	if raw.Rate != nil {
		p.Rate = *raw.Rate
	}
	if text := strings.TrimSpace(raw.AcquireTimeout); text != "" {
		d, err := time.ParseDuration(text)
		if err != nil {
			return fmt.Errorf("acquireTimeout: invalid duration %q", raw.AcquireTimeout)
		}
		p.AcquireTimeout = d
	}
	return nil
}

// TelemetryConfig configures the OpenTelemetry metric exporter.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint; empty disables export.
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	// ServiceName identifies this process in exported metrics.
	ServiceName string `yaml:"serviceName"`
}

// Settings contains the respool configuration tree loaded from defaults,
// an optional YAML file, and environment overrides.
type Settings struct {
	Pool      PoolConfig      `yaml:"pool"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the default respool configuration.
func Default() Settings {
	return Settings{
		Pool: PoolConfig{
			InitialCapacity: 8,
			AcquireTimeout:  5 * time.Second,
			Workers:         16,
			Rate:            0,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "",
			ServiceName:  "respool",
		},
	}
}

// Load reads settings from the YAML file at path, layered over defaults.
func Load(path string) (Settings, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads settings from path when the file exists, falling back
// to defaults otherwise. The boolean reports whether a file was loaded.
func LoadOrDefault(path string) (Settings, bool, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), false, nil
		}
		return Settings{}, false, fmt.Errorf("stat config %s: %w", path, err)
	}
	cfg, err := Load(path)
	if err != nil {
		return Settings{}, false, err
	}
	return cfg, true, nil
}

// FromEnv applies RESPOOL_* environment overrides on top of the receiver and
// returns the result.
func (s Settings) FromEnv() Settings {
	if v, ok := lookupInt("RESPOOL_INITIAL_CAPACITY"); ok {
		s.Pool.InitialCapacity = v
	}
	if v, ok := lookupDuration("RESPOOL_ACQUIRE_TIMEOUT"); ok {
		s.Pool.AcquireTimeout = v
	}
	if v, ok := lookupInt("RESPOOL_WORKERS"); ok {
		s.Pool.Workers = v
	}
	if v := strings.TrimSpace(os.Getenv("RESPOOL_OTLP_ENDPOINT")); v != "" {
		s.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("RESPOOL_SERVICE_NAME")); v != "" {
		s.Telemetry.ServiceName = v
	}
	return s
}

// Validate rejects settings no pool could be built from.
func (s Settings) Validate() error {
	if s.Pool.InitialCapacity < 0 {
		return fmt.Errorf("pool.initialCapacity must be >= 0, got %d", s.Pool.InitialCapacity)
	}
	if s.Pool.AcquireTimeout < 0 {
		return fmt.Errorf("pool.acquireTimeout must be >= 0, got %s", s.Pool.AcquireTimeout)
	}
	if s.Pool.Workers <= 0 {
		return fmt.Errorf("pool.workers must be > 0, got %d", s.Pool.Workers)
	}
	if s.Pool.Rate < 0 {
		return fmt.Errorf("pool.rate must be >= 0, got %v", s.Pool.Rate)
	}
	return nil
}

func lookupInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
