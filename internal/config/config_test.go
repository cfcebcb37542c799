package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/clothsim/internal/cloth"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Grid.Cols != 21 || cfg.Grid.Rows != 21 {
		t.Errorf("expected 21x21 grid, got %dx%d", cfg.Grid.Cols, cfg.Grid.Rows)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p != cloth.DefaultParams() {
		t.Errorf("params differ from cloth defaults:\n%+v\n%+v", p, cloth.DefaultParams())
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("structural")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Grid.Cols != 3 || cfg.Springs.Shear.Enabled || cfg.Springs.Bend.Enabled {
		t.Errorf("unexpected structural preset: %+v", cfg)
	}
	if cfg.Name != "structural" {
		t.Errorf("expected name structural, got %s", cfg.Name)
	}

	// presets must not leak into defaults
	if DefaultConfig().Grid.Cols != 21 {
		t.Error("preset modified the defaults")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s invalid: %v", name, err)
			}
			p, err := cfg.Params()
			if err != nil {
				t.Fatal(err)
			}
			if _, err := cloth.New(p); err != nil {
				t.Errorf("preset %s does not build: %v", name, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, nil},
		{"negative duration", func(c *Config) { c.Duration = -1 }, nil},
		{"small grid", func(c *Config) { c.Grid.Rows = 2 }, cloth.ErrGridTooSmall},
		{"bad pinning", func(c *Config) { c.Pinning = "middle" }, nil},
		{"bad orientation", func(c *Config) { c.Grid.Orientation = "diagonal" }, nil},
		{"bad path", func(c *Config) { c.Contact.Enabled = true; c.Contact.Path.Kind = "spiral" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("haptic")

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Grid != cfg.Grid || loaded.Contact != cfg.Contact || loaded.Dt != cfg.Dt {
		t.Errorf("round trip mismatch:\n%+v\n%+v", cfg, loaded)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "dt: 0.002\ngrid:\n  cols: 8\npinning: top-edge\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != 0.002 || cfg.Grid.Cols != 8 || cfg.Pinning != "top-edge" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Grid.Rows != 21 || cfg.Mass != cloth.DefaultMass {
		t.Errorf("defaults lost: rows %d, mass %v", cfg.Grid.Rows, cfg.Mass)
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.SetParam("springs.bend.ks", 2); err != nil {
		t.Fatal(err)
	}
	if cfg.Springs.Bend.Ks != 2 {
		t.Errorf("expected bend ks 2, got %v", cfg.Springs.Bend.Ks)
	}
	if err := cfg.SetParam("unknown", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CLOTHSIM_DURATION=3.5\nCLOTHSIM_PRESET=drape\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDt, "0.004")
	t.Setenv(EnvDuration, "")
	t.Setenv(EnvPreset, "")
	os.Unsetenv(EnvDuration)
	os.Unsetenv(EnvPreset)

	if err := LoadEnv(envPath); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Dt != 0.004 || cfg.Duration != 3.5 {
		t.Errorf("env not applied: dt %v, duration %v", cfg.Dt, cfg.Duration)
	}
	if PresetFromEnv() != "drape" {
		t.Errorf("expected preset drape, got %q", PresetFromEnv())
	}

	t.Setenv(EnvDt, "fast")
	if err := ApplyEnv(cfg); err == nil {
		t.Error("expected parse error")
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv(EnvData, "")
	if DataDir() != DefaultDataDir {
		t.Errorf("expected default data dir, got %s", DataDir())
	}
	t.Setenv(EnvData, "/tmp/runs")
	if DataDir() != "/tmp/runs" {
		t.Errorf("expected /tmp/runs, got %s", DataDir())
	}
}
