package cloth

import "github.com/go-gl/mathgl/mgl64"

// Snapshot is a copy of node state taken after a tick.
type Snapshot struct {
	Tick       int
	Time       float64
	Cols       int
	Rows       int
	Positions  []mgl64.Vec3
	Velocities []mgl64.Vec3
	Fixed      []bool
}

// Snapshot copies the current node state into dst, reusing its slices when
// they are large enough. A nil dst allocates a new snapshot.
func (c *Cloth) Snapshot(dst *Snapshot) *Snapshot {
	if dst == nil {
		dst = &Snapshot{}
	}
	n := c.particles.Len()
	dst.Tick = c.tick
	dst.Time = c.time
	dst.Cols = c.particles.Cols
	dst.Rows = c.particles.Rows
	dst.Positions = grow(dst.Positions, n)
	dst.Velocities = grow(dst.Velocities, n)
	if cap(dst.Fixed) < n {
		dst.Fixed = make([]bool, n)
	}
	dst.Fixed = dst.Fixed[:n]

	copy(dst.Positions, c.particles.Pos)
	copy(dst.Velocities, c.particles.Vel)
	copy(dst.Fixed, c.particles.Fixed)
	return dst
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{Tick: s.Tick, Time: s.Time, Cols: s.Cols, Rows: s.Rows}
	c.Positions = append([]mgl64.Vec3(nil), s.Positions...)
	c.Velocities = append([]mgl64.Vec3(nil), s.Velocities...)
	c.Fixed = append([]bool(nil), s.Fixed...)
	return c
}

// Flatten returns positions as x0, y0, z0, x1, ... for storage and transport.
func (s *Snapshot) Flatten() []float64 {
	out := make([]float64, 0, len(s.Positions)*3)
	for _, p := range s.Positions {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}

func grow(s []mgl64.Vec3, n int) []mgl64.Vec3 {
	if cap(s) < n {
		return make([]mgl64.Vec3, n)
	}
	return s[:n]
}
