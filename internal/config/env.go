package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvDt       = "CLOTHSIM_DT"
	EnvDuration = "CLOTHSIM_DURATION"
	EnvPreset   = "CLOTHSIM_PRESET"
	EnvData     = "CLOTHSIM_DATA"
)

const DefaultDataDir = ".clothsim"

// LoadEnv reads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides dt and duration from the environment.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvDt); ok && v != "" {
		dt, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDt, err)
		}
		cfg.Dt = dt
	}
	if v, ok := os.LookupEnv(EnvDuration); ok && v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDuration, err)
		}
		cfg.Duration = d
	}
	return nil
}

// PresetFromEnv returns the preset named by CLOTHSIM_PRESET, if any.
func PresetFromEnv() string {
	return os.Getenv(EnvPreset)
}

// DataDir returns CLOTHSIM_DATA or the default run directory.
func DataDir() string {
	if d := os.Getenv(EnvData); d != "" {
		return d
	}
	return DefaultDataDir
}
