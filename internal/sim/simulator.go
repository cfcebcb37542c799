package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

// Simulator steps a cloth at a fixed dt, feeding metrics and observers.
type Simulator struct {
	cloth     *cloth.Cloth
	source    ForceSource
	metrics   []Metric
	observers []Observer
}

// New returns a simulator for c. source may be nil, in which case external
// forces set on the cloth are left alone.
func New(c *cloth.Cloth, source ForceSource) *Simulator {
	return &Simulator{
		cloth:     c,
		source:    source,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) Cloth() *cloth.Cloth    { return s.cloth }

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := stepCount(cfg)
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}
	frames := steps/every + 1
	result := &Result{
		Frames:       make([]*cloth.Snapshot, 0, frames),
		Times:        make([]float64, 0, frames),
		Energy:       make([]float64, 0, frames),
		DeviceForces: make([]mgl64.Vec3, 0, frames),
		Metrics:      make(map[string]float64),
		Errors:       make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	c := s.cloth
	initialEnergy := c.TotalEnergy()
	s.record(result, mgl64.Vec3{})

	frame := &Frame{Cloth: c, Dt: cfg.Dt}
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		device, err := s.applyForces(c.Time())
		if err != nil {
			result.Errors = append(result.Errors, SimError{Time: c.Time(), Step: i, Message: err.Error()})
			break
		}
		if err := c.Advance(cfg.Dt); err != nil {
			result.Errors = append(result.Errors, SimError{Time: c.Time(), Step: i, Message: err.Error()})
			break
		}
		if cfg.ValidateState && !c.Valid() {
			result.Errors = append(result.Errors, SimError{Time: c.Time(), Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}
		result.StepsTaken++

		frame.Tick = c.Tick()
		frame.Time = c.Time()
		frame.DeviceForce = device
		frame.Stats = c.Stats()
		for _, m := range s.metrics {
			m.Observe(frame)
		}
		for _, obs := range s.observers {
			obs.OnStep(frame)
		}

		if (i+1)%every == 0 {
			s.record(result, device)
		}
	}

	finalEnergy := c.TotalEnergy()
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback steps until the duration elapses or fn returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, fn func(*Frame) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	c := s.cloth
	frame := &Frame{Cloth: c, Dt: cfg.Dt}
	steps := stepCount(cfg)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		device, err := s.applyForces(c.Time())
		if err != nil {
			return err
		}
		if err := c.Advance(cfg.Dt); err != nil {
			return err
		}
		if cfg.ValidateState && !c.Valid() {
			return SimError{Time: c.Time(), Step: i, Message: "invalid state (NaN/Inf)"}
		}

		frame.Tick = c.Tick()
		frame.Time = c.Time()
		frame.DeviceForce = device
		frame.Stats = c.Stats()
		if !fn(frame) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) applyForces(t float64) (mgl64.Vec3, error) {
	if s.source == nil {
		return mgl64.Vec3{}, nil
	}
	return s.source.Apply(s.cloth, t)
}

func (s *Simulator) record(r *Result, device mgl64.Vec3) {
	r.Frames = append(r.Frames, s.cloth.Snapshot(nil))
	r.Times = append(r.Times, s.cloth.Time())
	r.Energy = append(r.Energy, s.cloth.TotalEnergy())
	r.DeviceForces = append(r.DeviceForces, device)
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.RecordEvery < 0 {
		return fmt.Errorf("record_every must be >= 0, got %d", cfg.RecordEvery)
	}
	return nil
}

func stepCount(cfg Config) int {
	return int(cfg.Duration/cfg.Dt + 1e-9)
}
