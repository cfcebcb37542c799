package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

// Frame is what metrics and observers see after each tick. Cloth is the live
// simulation and must only be read.
type Frame struct {
	Tick        int
	Time        float64
	Dt          float64
	Cloth       *cloth.Cloth
	DeviceForce mgl64.Vec3
	Stats       cloth.Stats
}

// ForceSource computes external forces before each tick, typically the
// contact proxy. It returns the force felt by the device.
type ForceSource interface {
	Apply(c *cloth.Cloth, t float64) (mgl64.Vec3, error)
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f *Frame)
}

type Config struct {
	Dt       float64
	Duration float64
	// RecordEvery stores a snapshot every n ticks; 0 or 1 records every tick.
	RecordEvery   int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 120,
		Duration:      5.0,
		RecordEvery:   1,
		ValidateState: true,
	}
}

type Result struct {
	Frames       []*cloth.Snapshot
	Times        []float64
	Energy       []float64
	DeviceForces []mgl64.Vec3
	Metrics      map[string]float64
	EnergyDrift  float64
	StepsTaken   int
	Errors       []error
}

// Series returns the y coordinate of one node across the recorded frames.
func (r *Result) Series(node int) []float64 {
	out := make([]float64, 0, len(r.Frames))
	for _, f := range r.Frames {
		if node >= 0 && node < len(f.Positions) {
			out = append(out, f.Positions[node][1])
		}
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
