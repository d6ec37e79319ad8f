// Package config loads planner settings from YAML or JSON files and the
// environment.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/signalsfoundry/router-placement/core"
	"github.com/signalsfoundry/router-placement/internal/logging"
	"github.com/signalsfoundry/router-placement/internal/observability"
	"github.com/signalsfoundry/router-placement/model"
	"github.com/signalsfoundry/router-placement/placement"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid planner config")

// Config is the full set of knobs for a planning run.
type Config struct {
	// Layout is a JSON building layout. Empty selects the built-in demo
	// building.
	Layout string `yaml:"layout" json:"layout"`

	Propagation core.PropagationConfig `yaml:"propagation" json:"propagation"`
	Optimizer   placement.Config       `yaml:"optimizer" json:"optimizer"`
	Candidates  model.GridSpec         `yaml:"candidates" json:"candidates"`
	Sensors     model.GridSpec         `yaml:"sensors" json:"sensors"`
	Baseline    BaselineConfig         `yaml:"baseline" json:"baseline"`
	Output      OutputConfig           `yaml:"output" json:"output"`

	Logging logging.Config              `yaml:"logging" json:"logging"`
	Tracing observability.TracingConfig `yaml:"tracing" json:"tracing"`
}

// BaselineConfig controls the comparison strategies run after the
// optimizer.
type BaselineConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Trials  int    `yaml:"trials" json:"trials"`
	Seed    uint64 `yaml:"seed" json:"seed"`
}

// OutputConfig names optional run artefacts. Empty paths are skipped.
type OutputConfig struct {
	Archive         string `yaml:"archive" json:"archive"`                   // sqlite database
	MetricsTextfile string `yaml:"metrics_textfile" json:"metrics_textfile"` // node_exporter textfile
	MetricsAddr     string `yaml:"metrics_addr" json:"metrics_addr"`         // serve /metrics while running
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Propagation: core.DefaultPropagationConfig(),
		Optimizer:   placement.DefaultConfig(),
		Candidates:  model.GridSpec{Spacing: 5.0, Margin: 1.0, HeightAboveFloor: 3.5},
		Sensors:     model.GridSpec{Spacing: 1.5, Margin: 1.0, HeightAboveFloor: 1.0},
		Baseline:    BaselineConfig{Enabled: true, Trials: 100, Seed: 1},
		Logging:     logging.Config{Level: "info", Format: "text"},
		Tracing:     observability.DefaultTracingConfig(),
	}
}

// Load reads path over Default. Files ending in .json are decoded as
// JSON, everything else as YAML. Unknown keys are rejected. A materials
// section adds to, or overrides, the built-in table.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config JSON: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if cfg.Layout != "" && !filepath.IsAbs(cfg.Layout) {
		cfg.Layout = filepath.Join(filepath.Dir(path), cfg.Layout)
	}
	return cfg, nil
}

// ApplyEnv overlays PLANNER_SEED, PLANNER_GENERATIONS, PLANNER_POPULATION
// and PLANNER_WORKERS, plus the logging and tracing variables.
func (c *Config) ApplyEnv() error {
	if err := envUint("PLANNER_SEED", &c.Optimizer.Seed); err != nil {
		return err
	}
	if err := envInt("PLANNER_GENERATIONS", &c.Optimizer.Generations); err != nil {
		return err
	}
	if err := envInt("PLANNER_POPULATION", &c.Optimizer.PopulationSize); err != nil {
		return err
	}
	if err := envInt("PLANNER_WORKERS", &c.Optimizer.Workers); err != nil {
		return err
	}
	c.Logging = logging.ConfigFromEnv(c.Logging)
	c.Tracing = observability.TracingConfigFromEnv(c.Tracing)
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Propagation.Validate(); err != nil {
		return err
	}
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	if err := c.Candidates.Validate(); err != nil {
		return fmt.Errorf("candidates: %w", err)
	}
	if err := c.Sensors.Validate(); err != nil {
		return fmt.Errorf("sensors: %w", err)
	}
	if c.Baseline.Enabled && c.Baseline.Trials < 1 {
		return fmt.Errorf("%w: baseline trials %d must be positive", ErrInvalidConfig, c.Baseline.Trials)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, raw, err)
	}
	*dst = v
	return nil
}

func envUint(key string, dst *uint64) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, raw, err)
	}
	*dst = v
	return nil
}
