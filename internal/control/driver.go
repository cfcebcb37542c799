package control

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Driver places the contact cursor at simulation time t.
type Driver interface {
	Name() string
	Position(t float64) mgl64.Vec3
}

// Feedback is implemented by drivers that react to the force the cloth
// pushes back on the cursor.
type Feedback interface {
	Feedback(device mgl64.Vec3, t float64)
}

// Path describes a driver in configuration terms.
type Path struct {
	Kind      string
	Start     mgl64.Vec3
	End       mgl64.Vec3
	Amplitude float64
	Period    float64
	// Target is the force magnitude a hold driver regulates to.
	Target float64
}

var driverNames = []string{"none", "manual", "press", "sweep", "hold"}

// DriverNames lists the accepted Path.Kind values.
func DriverNames() []string {
	out := make([]string, len(driverNames))
	copy(out, driverNames)
	return out
}

// NewDriver builds the driver described by p. An empty kind means none.
func NewDriver(p Path) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case "", "none":
		return NewNone(), nil
	case "manual":
		return NewManual(p.Start), nil
	case "press":
		if p.Period <= 0 {
			return nil, fmt.Errorf("press: period must be positive, got %g", p.Period)
		}
		return &Press{Center: p.Start, Amplitude: p.Amplitude, Period: p.Period}, nil
	case "sweep":
		if p.Period <= 0 {
			return nil, fmt.Errorf("sweep: period must be positive, got %g", p.Period)
		}
		return &Sweep{Start: p.Start, End: p.End, Period: p.Period}, nil
	case "hold":
		if p.Target <= 0 {
			return nil, fmt.Errorf("hold: target force must be positive, got %g", p.Target)
		}
		return NewHold(p.Start, p.Target), nil
	}
	return nil, fmt.Errorf("unknown cursor path: %s", p.Kind)
}
