// Package contact couples a spherical haptic cursor to a cloth. Every node
// is treated as a small sphere; overlapping the cursor produces a penalty
// force that pushes the node away and is summed as the device force.
package contact

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/control"
)

// minSeparation below which cursor and node are treated as coincident and
// no direction can be derived.
const minSeparation = 1e-7

type Params struct {
	Radius     float64 // cursor sphere
	NodeRadius float64 // collision radius of each node
	Stiffness  float64
	// ForceScale multiplies the summed device force.
	ForceScale float64
}

func DefaultParams() Params {
	return Params{Radius: 0.1, NodeRadius: 0.05, Stiffness: 100, ForceScale: 1}
}

func (p Params) Validate() error {
	if p.Radius < 0 || p.NodeRadius < 0 {
		return fmt.Errorf("contact radii must be non-negative, got %g and %g", p.Radius, p.NodeRadius)
	}
	if p.Stiffness < 0 {
		return fmt.Errorf("contact stiffness must be non-negative, got %g", p.Stiffness)
	}
	return nil
}

// Force returns the force the node at nodePos exerts on the cursor. It is
// zero when the spheres do not overlap or their centres coincide.
func Force(cursor mgl64.Vec3, cursorRadius float64, nodePos mgl64.Vec3, nodeRadius, stiffness float64) mgl64.Vec3 {
	d := cursor.Sub(nodePos)
	dist := d.Len()
	if dist < minSeparation || dist > cursorRadius+nodeRadius {
		return mgl64.Vec3{}
	}
	penetration := cursorRadius + nodeRadius - dist
	return d.Mul(penetration * stiffness / dist)
}

// Proxy is a cursor sphere moved by a control.Driver. It implements
// sim.ForceSource.
type Proxy struct {
	params   Params
	driver   control.Driver
	cursor   mgl64.Vec3
	contacts int
}

func New(p Params, d control.Driver) *Proxy {
	if d == nil {
		d = control.NewNone()
	}
	if p.ForceScale == 0 {
		p.ForceScale = 1
	}
	return &Proxy{params: p, driver: d, cursor: d.Position(0)}
}

// Apply replaces the cloth's external forces with the contact reactions at
// time t and returns the device force.
func (p *Proxy) Apply(c *cloth.Cloth, t float64) (mgl64.Vec3, error) {
	p.cursor = p.driver.Position(t)
	c.ClearExternalForces()

	var device mgl64.Vec3
	p.contacts = 0
	for i := 0; i < c.Nodes(); i++ {
		x, err := c.PositionAt(i)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		f := Force(p.cursor, p.params.Radius, x, p.params.NodeRadius, p.params.Stiffness)
		if f == (mgl64.Vec3{}) {
			continue
		}
		if err := c.SetExternalForceAt(i, f.Mul(-1)); err != nil {
			return mgl64.Vec3{}, err
		}
		device = device.Add(f)
		p.contacts++
	}
	device = device.Mul(p.params.ForceScale)

	if fb, ok := p.driver.(control.Feedback); ok {
		fb.Feedback(device, t)
	}
	return device, nil
}

// SetCursor moves the cursor directly. A non-manual driver is replaced by a
// manual one starting at pos.
func (p *Proxy) SetCursor(pos mgl64.Vec3) {
	if m, ok := p.driver.(*control.Manual); ok {
		m.Set(pos)
	} else {
		p.driver = control.NewManual(pos)
	}
	p.cursor = pos
}

func (p *Proxy) Cursor() mgl64.Vec3     { return p.cursor }
func (p *Proxy) Contacts() int          { return p.contacts }
func (p *Proxy) Params() Params         { return p.params }
func (p *Proxy) Driver() control.Driver { return p.driver }
