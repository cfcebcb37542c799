package config

import "sort"

// Presets are named scenes built as overlays on DefaultConfig.
var Presets = map[string]func(c *Config){
	"reference": func(c *Config) {},
	"hanging": func(c *Config) {
		c.Grid.Orientation = "vertical"
		c.Grid.Offset = [3]float64{-2, 4, 0}
		c.Pinning = "top-edge"
		c.Duration = 20
	},
	"drape": func(c *Config) {
		c.Grid.Offset = [3]float64{-2, 0.5, -2}
		c.Pinning = "none"
		c.Gravity = [3]float64{0, -0.0981, 0}
		c.Duration = 15
	},
	"stiff": func(c *Config) {
		c.Springs.Structural.Ks = 5
		c.Springs.Shear.Ks = 5
		c.Springs.Bend.Ks = 8.5
		c.CorrectionIterations = 4
		c.Dt = 1.0 / 240
	},
	"structural": func(c *Config) {
		c.Grid.Cols, c.Grid.Rows = 3, 3
		c.Grid.SpacingX, c.Grid.SpacingY, c.Grid.SpacingZ = 1, 1, 1
		c.Grid.Offset = [3]float64{0, 2, 0}
		c.Springs.Shear.Enabled = false
		c.Springs.Bend.Enabled = false
		c.Gravity = [3]float64{0, -9.81, 0}
		c.Duration = 2
		c.RecordEvery = 1
	},
	"haptic": func(c *Config) {
		c.Grid.Cols, c.Grid.Rows = 10, 10
		c.Grid.Offset = [3]float64{-0.9, 1, -0.9}
		c.Dt = 0.001
		c.Duration = 4
		c.RecordEvery = 20
		c.Contact.Enabled = true
		c.Contact.Path = PathConfig{Kind: "press", Start: [3]float64{0, 1, 0}, Amplitude: 0.3, Period: 2}
		c.Metrics = append(c.Metrics, "device_force")
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
