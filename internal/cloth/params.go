package cloth

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultDamping = -0.1
	DefaultMass    = 0.5
	DefaultEpsilon = 1e-9

	DefaultKsStruct = 0.5
	DefaultKdStruct = -0.25
	DefaultKsShear  = 0.5
	DefaultKdShear  = -0.25
	DefaultKsBend   = 0.85
	DefaultKdBend   = -0.25
)

// DefaultGravity is a per-node force, not an acceleration.
var DefaultGravity = mgl64.Vec3{0, -0.00981, 0}

// Orientation selects the plane the lattice is laid out in.
type Orientation int

const (
	// Horizontal lays the sheet in the xz plane, rows along +z.
	Horizontal Orientation = iota
	// Vertical hangs the sheet in the xy plane, rows along -y.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation accepts "horizontal" (or "") and "vertical".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	}
	return Horizontal, fmt.Errorf("unknown orientation: %s", s)
}

// Pinning declares which boundary nodes are fixed at construction.
type Pinning int

const (
	PinNone Pinning = iota
	PinCorners
	PinTopCorners
	PinTopEdge
	PinLeftEdge
)

var pinningNames = map[Pinning]string{
	PinNone:       "none",
	PinCorners:    "corners",
	PinTopCorners: "top-corners",
	PinTopEdge:    "top-edge",
	PinLeftEdge:   "left-edge",
}

func (p Pinning) String() string {
	if s, ok := pinningNames[p]; ok {
		return s
	}
	return fmt.Sprintf("pinning(%d)", int(p))
}

// ParsePinning maps a pinning name to its value; "" means corners.
func ParsePinning(s string) (Pinning, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return PinCorners, nil
	}
	for p, n := range pinningNames {
		if n == name {
			return p, nil
		}
	}
	return PinNone, fmt.Errorf("unknown pinning: %s", s)
}

// PinningNames lists the accepted pinning names in declaration order.
func PinningNames() []string {
	return []string{"none", "corners", "top-corners", "top-edge", "left-edge"}
}

// Grid describes the lattice: Cols nodes across (width), Rows nodes down (length).
type Grid struct {
	Cols, Rows                   int
	SpacingX, SpacingY, SpacingZ float64
	Offset                       mgl64.Vec3
	Orientation                  Orientation
}

// SpringFamily holds the stiffness/damping pair of one spring family.
type SpringFamily struct {
	Ks, Kd  float64
	Enabled bool
}

type Springs struct {
	Structural SpringFamily
	Shear      SpringFamily
	Bend       SpringFamily
}

// Ground is a horizontal floor plane at y = Height.
type Ground struct {
	Enabled bool
	Height  float64
}

// Params are the construction parameters of a Cloth.
type Params struct {
	Grid    Grid
	Springs Springs
	Mass    float64
	// Damping multiplies velocity into a drag force; negative is dissipative.
	Damping float64
	Gravity mgl64.Vec3
	Ground  Ground
	Pinning Pinning
	// CorrectionIterations is the number of dynamic inverse passes per tick.
	CorrectionIterations int
	// Epsilon is the spring length below which a spring is treated as degenerate.
	Epsilon float64
}

// DefaultParams reproduces the default scene: a 21x21 sheet two units above
// the floor with its four corners pinned.
func DefaultParams() Params {
	return Params{
		Grid: Grid{
			Cols: 21, Rows: 21,
			SpacingX: 0.2, SpacingY: 0.2, SpacingZ: 0.2,
			Offset:      mgl64.Vec3{-2, 2, 0},
			Orientation: Horizontal,
		},
		Springs: Springs{
			Structural: SpringFamily{Ks: DefaultKsStruct, Kd: DefaultKdStruct, Enabled: true},
			Shear:      SpringFamily{Ks: DefaultKsShear, Kd: DefaultKdShear, Enabled: true},
			Bend:       SpringFamily{Ks: DefaultKsBend, Kd: DefaultKdBend, Enabled: true},
		},
		Mass:                 DefaultMass,
		Damping:              DefaultDamping,
		Gravity:              DefaultGravity,
		Ground:               Ground{Enabled: true, Height: 0},
		Pinning:              PinCorners,
		CorrectionIterations: 1,
		Epsilon:              DefaultEpsilon,
	}
}

// Validate checks the parameters New would reject.
func (p Params) Validate() error {
	if p.Grid.Cols < 3 || p.Grid.Rows < 3 {
		return fmt.Errorf("%w: got %dx%d", ErrGridTooSmall, p.Grid.Cols, p.Grid.Rows)
	}
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidMass, p.Mass)
	}
	if !(p.Epsilon > 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidParams, p.Epsilon)
	}
	if p.CorrectionIterations < 0 {
		return fmt.Errorf("%w: correction iterations must be >= 0, got %d", ErrInvalidParams, p.CorrectionIterations)
	}
	rowSpacing := p.Grid.SpacingZ
	if p.Grid.Orientation == Vertical {
		rowSpacing = p.Grid.SpacingY
	}
	for _, s := range []float64{p.Grid.SpacingX, rowSpacing} {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: spacing must be positive and finite, got %g", ErrInvalidParams, s)
		}
	}
	if !finite(p.Grid.Offset) || !finite(p.Gravity) {
		return fmt.Errorf("%w: non-finite offset or gravity", ErrInvalidParams)
	}
	return nil
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
