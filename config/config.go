// Package config loads the engine's tunables from a YAML file, grounded on
// the teacher's two-stage viper -> yaml.v3 unmarshal (reinforcement.FromYaml):
// viper only resolves the file/format, and a second yaml.Unmarshal pass
// decodes the typed payload so the outer file can carry an envelope without
// coupling viper's mapstructure tags to the real config shape.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerConfig is the on-disk envelope: { kind: agvsim, def: { ...Config } }.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config holds every tunable of a simulation run (SPEC_FULL.md §2.1).
type Config struct {
	// Input describes where SimInput is sourced from.
	Input InputConfig `yaml:"input"`
	// OutputDir is where simulation_events.csv and simulation_kpi.csv land.
	OutputDir string `yaml:"outputDir"`
	// Seed seeds each floor's independent RNG (spec.md §8 property 7).
	Seed int64 `yaml:"seed"`
	// DynamicHorizonSeconds overrides reservation.Horizon (spec.md §9 open
	// question: "the correct upper bound is workload-dependent").
	DynamicHorizonSeconds int `yaml:"dynamicHorizonSeconds"`
	// AGVsPerFloor overrides the default fleet size (spec.md §3: "66 AGVs
	// per floor at start").
	AGVsPerFloor int `yaml:"agvsPerFloor"`
	// Monitor configures the optional debug surface (SPEC_FULL.md §2.4).
	Monitor MonitorConfig `yaml:"monitor"`
}

// InputConfig locates the preprocessed SimInput bundle (spec.md §6).
type InputConfig struct {
	GridPath    string `yaml:"gridPath"`
	StationPath string `yaml:"stationPath"`
	ShelfPath   string `yaml:"shelfPath"`
	TaskPath    string `yaml:"taskPath"`
	BaseTime    int64  `yaml:"baseTime"`
}

// MonitorConfig toggles the gorilla/mux + gorilla/websocket debug server.
type MonitorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	TeeEvents  bool   `yaml:"teeEvents"`
}

const (
	defaultSeed                  = 1
	defaultDynamicHorizonSeconds = 60
	defaultAGVsPerFloor          = 66
)

// FromYaml loads and decodes a Config from path, applying defaults for any
// field the file omits.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Seed:                  defaultSeed,
		DynamicHorizonSeconds: defaultDynamicHorizonSeconds,
		AGVsPerFloor:          defaultAGVsPerFloor,
	}
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
