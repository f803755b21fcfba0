// Package config loads NodeBrain's engine configuration the way the
// teacher's internal/config package does: godotenv for local .env
// overrides, yaml.v3 for the file itself, go-playground/validator for
// shape checking, with coded defaults when no file is present.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls internal/nblog.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// EngineConfig tunes the reactive core.
type EngineConfig struct {
	HeapPageBytes  int     `yaml:"heapPageBytes" validate:"gt=0"`
	HashGrowFactor float64 `yaml:"hashGrowFactor" validate:"gt=0,lte=1"`
	MaxReactWaves  int     `yaml:"maxReactWaves" validate:"gt=0"`
	Bail           bool    `yaml:"bail"`
}

// TraceConfig turns on per-subsystem trace diagnostics (NBnnnT messages).
type TraceConfig struct {
	Cells  bool `yaml:"cells"`
	Axons  bool `yaml:"axons"`
	Timers bool `yaml:"timers"`
	Hashes bool `yaml:"hashes"`
	Rules  bool `yaml:"rules"`
}

// Config is the top-level engine configuration document.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Trace   TraceConfig   `yaml:"trace"`
}

var validate = validator.New()

// Default returns the configuration used when no file is supplied, matching
// the defaults spec.md assumes for command-line/interactive use.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{
			HeapPageBytes:  128 * 1024,
			HashGrowFactor: 0.75,
			MaxReactWaves:  100000,
			Bail:           false,
		},
		Trace: TraceConfig{},
	}
}

// Load reads .env (if present, via godotenv) then the YAML file at path,
// overlaying it on Default and validating the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
