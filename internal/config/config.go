package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/contact"
	"github.com/san-kum/clothsim/internal/control"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	DefaultDt          = 1.0 / 120
	DefaultDuration    = 10.0
	DefaultRecordEvery = 4
	DefaultTickHz      = 1000.0
	DefaultMaxDt       = 0.001
	DefaultBroadcastHz = 60.0
)

type Config struct {
	Name                 string         `yaml:"name"`
	Dt                   float64        `yaml:"dt"`
	Duration             float64        `yaml:"duration"`
	RecordEvery          int            `yaml:"record_every"`
	Grid                 GridConfig     `yaml:"grid"`
	Springs              SpringsConfig  `yaml:"springs"`
	Mass                 float64        `yaml:"mass"`
	Damping              float64        `yaml:"damping"`
	Gravity              [3]float64     `yaml:"gravity,flow"`
	Ground               GroundConfig   `yaml:"ground"`
	Pinning              string         `yaml:"pinning"`
	CorrectionIterations int            `yaml:"correction_iterations"`
	Epsilon              float64        `yaml:"epsilon"`
	Contact              ContactConfig  `yaml:"contact"`
	Realtime             RealtimeConfig `yaml:"realtime"`
	Metrics              []string       `yaml:"metrics,flow"`
}

type GridConfig struct {
	Cols        int        `yaml:"cols"`
	Rows        int        `yaml:"rows"`
	SpacingX    float64    `yaml:"spacing_x"`
	SpacingY    float64    `yaml:"spacing_y"`
	SpacingZ    float64    `yaml:"spacing_z"`
	Offset      [3]float64 `yaml:"offset,flow"`
	Orientation string     `yaml:"orientation"`
}

type SpringConfig struct {
	Ks      float64 `yaml:"ks"`
	Kd      float64 `yaml:"kd"`
	Enabled bool    `yaml:"enabled"`
}

type SpringsConfig struct {
	Structural SpringConfig `yaml:"structural"`
	Shear      SpringConfig `yaml:"shear"`
	Bend       SpringConfig `yaml:"bend"`
}

type GroundConfig struct {
	Enabled bool    `yaml:"enabled"`
	Height  float64 `yaml:"height"`
}

type PathConfig struct {
	Kind      string     `yaml:"kind"`
	Start     [3]float64 `yaml:"start,flow"`
	End       [3]float64 `yaml:"end,flow"`
	Amplitude float64    `yaml:"amplitude"`
	Period    float64    `yaml:"period"`
	Target    float64    `yaml:"target"`
}

type ContactConfig struct {
	Enabled    bool       `yaml:"enabled"`
	Radius     float64    `yaml:"radius"`
	NodeRadius float64    `yaml:"node_radius"`
	Stiffness  float64    `yaml:"stiffness"`
	ForceScale float64    `yaml:"force_scale"`
	Path       PathConfig `yaml:"path"`
}

type RealtimeConfig struct {
	TickHz      float64 `yaml:"tick_hz"`
	MaxDt       float64 `yaml:"max_dt"`
	BroadcastHz float64 `yaml:"broadcast_hz"`
}

// DefaultConfig reproduces the default scene.
func DefaultConfig() *Config {
	p := cloth.DefaultParams()
	cp := contact.DefaultParams()
	return &Config{
		Name:        "reference",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		RecordEvery: DefaultRecordEvery,
		Grid: GridConfig{
			Cols:        p.Grid.Cols,
			Rows:        p.Grid.Rows,
			SpacingX:    p.Grid.SpacingX,
			SpacingY:    p.Grid.SpacingY,
			SpacingZ:    p.Grid.SpacingZ,
			Offset:      p.Grid.Offset,
			Orientation: p.Grid.Orientation.String(),
		},
		Springs: SpringsConfig{
			Structural: SpringConfig{Ks: cloth.DefaultKsStruct, Kd: cloth.DefaultKdStruct, Enabled: true},
			Shear:      SpringConfig{Ks: cloth.DefaultKsShear, Kd: cloth.DefaultKdShear, Enabled: true},
			Bend:       SpringConfig{Ks: cloth.DefaultKsBend, Kd: cloth.DefaultKdBend, Enabled: true},
		},
		Mass:                 p.Mass,
		Damping:              p.Damping,
		Gravity:              p.Gravity,
		Ground:               GroundConfig{Enabled: p.Ground.Enabled, Height: p.Ground.Height},
		Pinning:              p.Pinning.String(),
		CorrectionIterations: p.CorrectionIterations,
		Epsilon:              p.Epsilon,
		Contact: ContactConfig{
			Radius:     cp.Radius,
			NodeRadius: cp.NodeRadius,
			Stiffness:  cp.Stiffness,
			ForceScale: cp.ForceScale,
			Path:       PathConfig{Kind: "none"},
		},
		Realtime: RealtimeConfig{
			TickHz:      DefaultTickHz,
			MaxDt:       DefaultMaxDt,
			BroadcastHz: DefaultBroadcastHz,
		},
		Metrics: []string{"energy", "max_stretch", "sag", "stability"},
	}
}

// Load overlays the YAML file at path on DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Metrics = append([]string(nil), c.Metrics...)
	return &cp
}

// Validate checks the run settings and that the cloth parameters build.
func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("record_every must be >= 0, got %d", c.RecordEvery)
	}
	p, err := c.Params()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if c.Contact.Enabled {
		if err := c.ContactParams().Validate(); err != nil {
			return err
		}
		if _, err := control.NewDriver(c.CursorPath()); err != nil {
			return err
		}
	}
	return nil
}

// Params converts the cloth section to cloth.Params. Names are parsed but
// numeric validation is left to cloth.New.
func (c *Config) Params() (cloth.Params, error) {
	orient, err := cloth.ParseOrientation(c.Grid.Orientation)
	if err != nil {
		return cloth.Params{}, err
	}
	pin, err := cloth.ParsePinning(c.Pinning)
	if err != nil {
		return cloth.Params{}, err
	}
	family := func(s SpringConfig) cloth.SpringFamily {
		return cloth.SpringFamily{Ks: s.Ks, Kd: s.Kd, Enabled: s.Enabled}
	}
	return cloth.Params{
		Grid: cloth.Grid{
			Cols:        c.Grid.Cols,
			Rows:        c.Grid.Rows,
			SpacingX:    c.Grid.SpacingX,
			SpacingY:    c.Grid.SpacingY,
			SpacingZ:    c.Grid.SpacingZ,
			Offset:      mgl64.Vec3(c.Grid.Offset),
			Orientation: orient,
		},
		Springs: cloth.Springs{
			Structural: family(c.Springs.Structural),
			Shear:      family(c.Springs.Shear),
			Bend:       family(c.Springs.Bend),
		},
		Mass:                 c.Mass,
		Damping:              c.Damping,
		Gravity:              mgl64.Vec3(c.Gravity),
		Ground:               cloth.Ground{Enabled: c.Ground.Enabled, Height: c.Ground.Height},
		Pinning:              pin,
		CorrectionIterations: c.CorrectionIterations,
		Epsilon:              c.Epsilon,
	}, nil
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		RecordEvery:   c.RecordEvery,
		ValidateState: true,
	}
}

func (c *Config) ContactParams() contact.Params {
	return contact.Params{
		Radius:     c.Contact.Radius,
		NodeRadius: c.Contact.NodeRadius,
		Stiffness:  c.Contact.Stiffness,
		ForceScale: c.Contact.ForceScale,
	}
}

func (c *Config) CursorPath() control.Path {
	p := c.Contact.Path
	return control.Path{
		Kind:      p.Kind,
		Start:     mgl64.Vec3(p.Start),
		End:       mgl64.Vec3(p.End),
		Amplitude: p.Amplitude,
		Period:    p.Period,
		Target:    p.Target,
	}
}

func (c *Config) RunnerConfig() sim.RunnerConfig {
	return sim.RunnerConfig{
		TickHz: c.Realtime.TickHz,
		MaxDt:  time.Duration(c.Realtime.MaxDt * float64(time.Second)),
	}
}

// SetParam adjusts a numeric setting by its dotted yaml name, used by
// sweeps and grid search.
func (c *Config) SetParam(name string, value float64) error {
	switch name {
	case "dt":
		c.Dt = value
	case "duration":
		c.Duration = value
	case "mass":
		c.Mass = value
	case "damping":
		c.Damping = value
	case "gravity.y":
		c.Gravity[1] = value
	case "correction_iterations":
		c.CorrectionIterations = int(value)
	case "springs.structural.ks":
		c.Springs.Structural.Ks = value
	case "springs.structural.kd":
		c.Springs.Structural.Kd = value
	case "springs.shear.ks":
		c.Springs.Shear.Ks = value
	case "springs.shear.kd":
		c.Springs.Shear.Kd = value
	case "springs.bend.ks":
		c.Springs.Bend.Ks = value
	case "springs.bend.kd":
		c.Springs.Bend.Kd = value
	case "contact.stiffness":
		c.Contact.Stiffness = value
	case "contact.radius":
		c.Contact.Radius = value
	case "ground.height":
		c.Ground.Height = value
	default:
		return fmt.Errorf("unknown parameter: %s", name)
	}
	return nil
}
