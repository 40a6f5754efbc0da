// Package config loads the core's tunables from a YAML file: geometry
// discretization, CBS parallelism, and Operation Handler thresholds. It
// follows the same viper-backed FromYaml shape used elsewhere in the
// example corpus for single-file app config, rather than hand-rolling a
// flag/env parser.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
)

// Geometry mirrors discretizer.Config in a form viper/yaml can unmarshal
// directly (discretizer.Config has geomtype.Position fields, which yaml maps
// onto by field name).
type Geometry struct {
	HeightOffset float64           `mapstructure:"height_offset" yaml:"height_offset"`
	Height       float64           `mapstructure:"height" yaml:"height"`
	Step         geomtype.Position `mapstructure:"step" yaml:"step"`
	Weight       geomtype.Position `mapstructure:"weight" yaml:"weight"`
}

// CBS parameterizes the solver's bounded parallel expansion.
type CBS struct {
	MaxThreads int `mapstructure:"max_threads" yaml:"max_threads"`
}

// OpHandler parameterizes the Operation Handler's safety and timing
// thresholds, in wire-friendly units (milliseconds rather than
// time.Duration, which viper/yaml cannot unmarshal directly).
type OpHandler struct {
	ProximityThreshold    float64 `mapstructure:"proximity_threshold" yaml:"proximity_threshold"`
	TargetTolerance       float64 `mapstructure:"target_tolerance" yaml:"target_tolerance"`
	HoverDebounceMS       int     `mapstructure:"hover_debounce_ms" yaml:"hover_debounce_ms"`
	TelemetryStaleAfterMS int     `mapstructure:"telemetry_stale_after_ms" yaml:"telemetry_stale_after_ms"`
	TickPeriodMS          int     `mapstructure:"tick_period_ms" yaml:"tick_period_ms"`
}

// Server holds the TCP listen addresses for the two endpoints the core
// accepts connections from.
type Server struct {
	DroneListenAddr       string `mapstructure:"drone_listen_addr" yaml:"drone_listen_addr"`
	InteractionListenAddr string `mapstructure:"interaction_listen_addr" yaml:"interaction_listen_addr"`
	NotifyIntervalMS      uint16 `mapstructure:"notify_interval_ms" yaml:"notify_interval_ms"`
}

// Config is the root configuration document.
type Config struct {
	Geometry  Geometry  `mapstructure:"geometry" yaml:"geometry"`
	CBS       CBS       `mapstructure:"cbs" yaml:"cbs"`
	OpHandler OpHandler `mapstructure:"op_handler" yaml:"op_handler"`
	Server    Server    `mapstructure:"server" yaml:"server"`
}

// HoverDebounce returns the configured hover debounce as a time.Duration.
func (o OpHandler) HoverDebounce() time.Duration {
	return time.Duration(o.HoverDebounceMS) * time.Millisecond
}

// TelemetryStaleAfter returns the configured staleness threshold as a
// time.Duration.
func (o OpHandler) TelemetryStaleAfter() time.Duration {
	return time.Duration(o.TelemetryStaleAfterMS) * time.Millisecond
}

// TickPeriod returns the configured tick period as a time.Duration.
func (o OpHandler) TickPeriod() time.Duration {
	return time.Duration(o.TickPeriodMS) * time.Millisecond
}

// Default returns the reference deployment's tunables, used when no config
// file is supplied.
func Default() Config {
	return Config{
		Geometry: Geometry{
			HeightOffset: 1.0,
			Height:       0.7,
			Step:         geomtype.Position{X: 0.6, Y: 0.6, Z: 0.6},
			Weight:       geomtype.Position{X: 1, Y: 1, Z: 1},
		},
		CBS: CBS{MaxThreads: 24},
		OpHandler: OpHandler{
			ProximityThreshold:    0.2,
			TargetTolerance:       0.1,
			HoverDebounceMS:       200,
			TelemetryStaleAfterMS: 2000,
			TickPeriodMS:          15,
		},
		Server: Server{
			DroneListenAddr:       ":7001",
			InteractionListenAddr: ":7002",
			NotifyIntervalMS:      100,
		},
	}
}

// FromYaml loads Config from a YAML file at path, starting from Default
// and overlaying whatever the file sets.
func FromYaml(path string) (Config, error) {
	cfg := Default()

	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	if err := vp.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling %s: %w", path, err)
	}
	return cfg, nil
}

// WriteExample renders cfg as YAML and writes it to path, so an operator
// can scaffold a starting config with `swarmcore-server -init-config`.
func WriteExample(path string, cfg Config) error {
	doc, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling example: %w", err)
	}
	return os.WriteFile(path, doc, 0o644)
}
