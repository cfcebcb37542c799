package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Stats reports what happened during the most recent tick.
type Stats struct {
	Degenerate int // springs skipped for near-zero length
	Corrected  int // springs corrected by the dynamic inverse, summed over passes
}

// Cloth owns a particle store and the spring network built over it.
type Cloth struct {
	params    Params
	particles *Particles
	net       *network
	tick      int
	time      float64
	stats     Stats
}

// New validates p and builds the lattice, pins and springs. On error no
// cloth is returned.
func New(p Params) (*Cloth, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	parts := newParticles(p.Grid.Cols, p.Grid.Rows)
	parts.layout(p.Grid)
	parts.pin(p.Pinning)

	return &Cloth{
		params:    p,
		particles: parts,
		net:       buildNetwork(parts, p.Springs),
	}, nil
}

// Advance runs one tick: accumulate forces, integrate, then apply the
// configured number of stretch correction passes.
func (c *Cloth) Advance(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidStep, dt)
	}

	var st Stats
	st.Degenerate = c.accumulate()
	c.integrate(dt)
	for i := 0; i < c.params.CorrectionIterations; i++ {
		st.Corrected += c.correct()
	}

	c.stats = st
	c.tick++
	c.time += dt
	return nil
}

func (c *Cloth) Params() Params { return c.params }

// Dims returns the lattice size as (cols, rows).
func (c *Cloth) Dims() (cols, rows int) { return c.particles.Cols, c.particles.Rows }

// Nodes returns the number of nodes.
func (c *Cloth) Nodes() int { return c.particles.Len() }

func (c *Cloth) Tick() int       { return c.tick }
func (c *Cloth) Time() float64   { return c.time }
func (c *Cloth) Stats() Stats    { return c.stats }
func (c *Cloth) Mass() float64   { return c.params.Mass }
func (c *Cloth) NumSprings() int { return len(c.net.springs) }

// Index maps (row, col) to a flat node index.
func (c *Cloth) Index(row, col int) (int, error) {
	i, ok := c.particles.Index(row, col)
	if !ok {
		return 0, fmt.Errorf("%w: (row %d, col %d) outside %dx%d", ErrNodeOutOfRange, row, col, c.particles.Cols, c.particles.Rows)
	}
	return i, nil
}

// Position returns the position of node (row, col).
func (c *Cloth) Position(row, col int) (mgl64.Vec3, error) {
	i, err := c.Index(row, col)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.Pos[i], nil
}

// Velocity returns the velocity of node (row, col).
func (c *Cloth) Velocity(row, col int) (mgl64.Vec3, error) {
	i, err := c.Index(row, col)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.Vel[i], nil
}

func (c *Cloth) PositionAt(i int) (mgl64.Vec3, error) {
	if err := c.particles.check(i); err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.Pos[i], nil
}

func (c *Cloth) VelocityAt(i int) (mgl64.Vec3, error) {
	if err := c.particles.check(i); err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.Vel[i], nil
}

// ForceAt returns the force accumulated for node i during the last tick.
func (c *Cloth) ForceAt(i int) (mgl64.Vec3, error) {
	if err := c.particles.check(i); err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.Force[i], nil
}

// SetExternalForce sets the collaborator force for node (row, col). It is
// added during the next force accumulation and persists until overwritten
// or cleared.
func (c *Cloth) SetExternalForce(row, col int, f mgl64.Vec3) error {
	i, err := c.Index(row, col)
	if err != nil {
		return err
	}
	c.particles.External[i] = f
	return nil
}

func (c *Cloth) SetExternalForceAt(i int, f mgl64.Vec3) error {
	if err := c.particles.check(i); err != nil {
		return err
	}
	c.particles.External[i] = f
	return nil
}

func (c *Cloth) ExternalForceAt(i int) (mgl64.Vec3, error) {
	if err := c.particles.check(i); err != nil {
		return mgl64.Vec3{}, err
	}
	return c.particles.External[i], nil
}

// ClearExternalForces zeroes every external force.
func (c *Cloth) ClearExternalForces() {
	for i := range c.particles.External {
		c.particles.External[i] = mgl64.Vec3{}
	}
}

// IsFixed reports whether node i is pinned.
func (c *Cloth) IsFixed(i int) (bool, error) {
	if err := c.particles.check(i); err != nil {
		return false, err
	}
	return c.particles.Fixed[i], nil
}

// FixedIndices lists the pinned nodes in ascending order.
func (c *Cloth) FixedIndices() []int {
	out := make([]int, 0, 4)
	for i, f := range c.particles.Fixed {
		if f {
			out = append(out, i)
		}
	}
	return out
}

// Springs returns a copy of the spring network.
func (c *Cloth) Springs() []Spring {
	out := make([]Spring, len(c.net.springs))
	copy(out, c.net.springs)
	return out
}

// Positions returns a copy of every node position.
func (c *Cloth) Positions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(c.particles.Pos))
	copy(out, c.particles.Pos)
	return out
}

// RestPositions returns a copy of the construction-time positions.
func (c *Cloth) RestPositions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(c.particles.rest))
	copy(out, c.particles.rest)
	return out
}

// Reset restores the construction-time layout with zero velocity and force.
// Springs, pins and parameters are unchanged.
func (c *Cloth) Reset() {
	c.particles.reset()
	c.tick = 0
	c.time = 0
	c.stats = Stats{}
}

// SetSpringConstants rescales one spring family in place. Rest lengths are
// not touched.
func (c *Cloth) SetSpringConstants(t SpringType, ks, kd float64) {
	for i := range c.net.springs {
		if c.net.springs[i].Type == t {
			c.net.springs[i].Ks = ks
			c.net.springs[i].Kd = kd
		}
	}
	switch t {
	case Structural:
		c.params.Springs.Structural.Ks, c.params.Springs.Structural.Kd = ks, kd
	case Shear:
		c.params.Springs.Shear.Ks, c.params.Springs.Shear.Kd = ks, kd
	case Bend:
		c.params.Springs.Bend.Ks, c.params.Springs.Bend.Kd = ks, kd
	}
}

// SetDamping changes the linear drag coefficient.
func (c *Cloth) SetDamping(d float64) { c.params.Damping = d }

// Valid reports whether every position and velocity is finite.
func (c *Cloth) Valid() bool {
	for i := range c.particles.Pos {
		if !finite(c.particles.Pos[i]) || !finite(c.particles.Vel[i]) {
			return false
		}
	}
	return true
}
