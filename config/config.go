// Package config loads the service configuration with koanf: a YAML or JSON
// file, then K_ prefixed environment overrides.
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

	"github.com/kilianp07/fleetnav/core/factory"
	"github.com/kilianp07/fleetnav/core/metrics"
	"github.com/kilianp07/fleetnav/infra/logger"
	"github.com/kilianp07/fleetnav/infra/mqtt"
)

type Config struct {
	Graph    GraphConfig          `json:"graph"`
	Fleet    FleetConfig          `json:"fleet"`
	Logging  logger.Config        `json:"logging"`
	EventLog factory.ModuleConfig `json:"event_log"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	API      APIConfig            `json:"api"`
	Sentry   SentryConfig         `json:"sentry"`
}

// GraphConfig points at the navigation graph document.
type GraphConfig struct {
	Path string `json:"path"`
	// Level selects a level by name; empty picks the first one.
	Level string `json:"level"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// Load reads path, applies environment overrides such as
// K_FLEET__TICK_PERIOD=50ms, then fills defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
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

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Fleet.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	var errs []error
	if c.Graph.Path == "" {
		errs = append(errs, errors.New("graph.path is required"))
	}
	errs = append(errs, c.Fleet.Validate(), c.Logging.Validate(), c.MQTT.Validate())
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics.sinks[%d]: type is required", i))
		}
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		errs = append(errs, errors.New("sentry.traces_sample_rate must be in [0,1]"))
	}
	return errors.Join(errs...)
}
