package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// Energy is the mean total (kinetic + potential) energy over the run.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *sim.Frame) {
	e.totalEnergy += f.Cloth.TotalEnergy()
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyRatio is the last observed total energy divided by the first.
type EnergyRatio struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	samples       int
}

func NewEnergyRatio() *EnergyRatio {
	return &EnergyRatio{name: "energy_ratio"}
}

func (e *EnergyRatio) Name() string { return e.name }

func (e *EnergyRatio) Observe(f *sim.Frame) {
	energy := f.Cloth.TotalEnergy()
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.currentEnergy = energy
	e.samples++
}

func (e *EnergyRatio) Value() float64 {
	if e.samples == 0 || e.initialEnergy == 0 {
		return 1
	}
	return e.currentEnergy / e.initialEnergy
}

func (e *EnergyRatio) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// total energy.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *sim.Frame) {
	energy := f.Cloth.TotalEnergy()

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
