package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/bessim/core/metrics"
	"github.com/kilianp07/bessim/core/runlog"
)

// Config is the root configuration of bessim.
type Config struct {
	Battery    BatteryConfig    `json:"battery"`
	Simulation SimulationConfig `json:"simulation"`
	Revenue    RevenueConfig    `json:"revenue"`
	Sizing     SizingConfig     `json:"sizing"`
	Metrics    metrics.Config   `json:"metrics"`
	Store      runlog.Config    `json:"store"`
	Sentry     SentryConfig     `json:"sentry"`
	Log        LogConfig        `json:"log"`
}

// Load reads the file at path, applies K_ environment overrides, fills
// defaults and validates every section. An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides, e.g. K_BATTERY__NOMINAL_ENERGY_KWH=10.
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the defaults used when no config file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Battery.SetDefaults()
	c.Simulation.SetDefaults()
	c.Revenue.SetDefaults()
	c.Sizing.SetDefaults()
	c.Store.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section. The battery is only checked when one is
// configured, so commands that do not simulate work without it.
func (c Config) Validate() error {
	var errs []error
	if c.Battery.Configured() {
		if _, err := c.Battery.Model(); err != nil {
			errs = append(errs, fmt.Errorf("battery: %w", err))
		}
	}
	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if err := c.Revenue.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("revenue: %w", err))
	}
	if err := c.Sizing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sizing: %w", err))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}
