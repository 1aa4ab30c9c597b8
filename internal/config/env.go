// Package config reads process settings from the environment. Command-line
// flags override these values.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Env struct {
	DataDir   string `env:"FABULA_DATA_DIR" envDefault:"data"`
	ConfigDir string `env:"FABULA_CONFIG_DIR" envDefault:"configs"`
	// IndexDB defaults to <DataDir>/index/scenes.sqlite.
	IndexDB string `env:"FABULA_INDEX_DB"`
	Journal bool   `env:"FABULA_JOURNAL" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

func (e Env) IndexPath() string {
	if e.IndexDB != "" {
		return e.IndexDB
	}
	return filepath.Join(e.DataDir, "index", "scenes.sqlite")
}

func (e Env) TuningPath() string { return filepath.Join(e.ConfigDir, "tuning.yaml") }
