package cloth

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultPickRadius is the mouse picking tolerance in world units.
const DefaultPickRadius = 0.1

// Triangles returns an index buffer with two triangles per lattice cell.
// The split diagonal alternates with (row+col) parity so the mesh has no
// directional bias.
func (c *Cloth) Triangles() []uint32 {
	u, v := c.particles.Cols, c.particles.Rows
	out := make([]uint32, 0, (u-1)*(v-1)*6)
	for r := 0; r < v-1; r++ {
		for col := 0; col < u-1; col++ {
			a := uint32(r*u + col)
			b := uint32(r*u + col + 1)
			d := uint32((r+1)*u + col)
			e := uint32((r+1)*u + col + 1)
			if (r+col)%2 == 0 {
				out = append(out, a, d, e, a, e, b)
			} else {
				out = append(out, a, d, b, b, d, e)
			}
		}
	}
	return out
}

// Edges returns the structural edges of the lattice as index pairs, for
// wireframe rendering.
func (c *Cloth) Edges() [][2]int {
	u, v := c.particles.Cols, c.particles.Rows
	out := make([][2]int, 0, v*(u-1)+u*(v-1))
	for r := 0; r < v; r++ {
		for col := 0; col < u; col++ {
			i := r*u + col
			if col+1 < u {
				out = append(out, [2]int{i, i + 1})
			}
			if r+1 < v {
				out = append(out, [2]int{i, i + u})
			}
		}
	}
	return out
}

// Pick returns the lowest-index node within radius of p.
func (c *Cloth) Pick(p mgl64.Vec3, radius float64) (int, bool) {
	for i, x := range c.particles.Pos {
		if x.Sub(p).Len() <= radius {
			return i, true
		}
	}
	return -1, false
}

// PickRay returns the node closest to the ray origin+t*dir (t >= 0) among
// those within radius of it, measured perpendicular to the ray. dir need not
// be normalised.
func (c *Cloth) PickRay(origin, dir mgl64.Vec3, radius float64) (int, bool) {
	return pickRay(c.particles.Pos, origin, dir, radius)
}

// PickRay is Cloth.PickRay over the snapshot positions, for readers that do
// not own the cloth.
func (s *Snapshot) PickRay(origin, dir mgl64.Vec3, radius float64) (int, bool) {
	return pickRay(s.Positions, origin, dir, radius)
}

func pickRay(pos []mgl64.Vec3, origin, dir mgl64.Vec3, radius float64) (int, bool) {
	if dir.Len() == 0 {
		return -1, false
	}
	dir = dir.Normalize()
	best, bestT := -1, math.Inf(1)
	for i, x := range pos {
		d := x.Sub(origin)
		t := d.Dot(dir)
		if t < 0 {
			continue
		}
		if d.Sub(dir.Mul(t)).Len() <= radius && t < bestT {
			best, bestT = i, t
		}
	}
	return best, best >= 0
}

// Bounds returns the axis-aligned bounding box of the current positions.
func (c *Cloth) Bounds() (lo, hi mgl64.Vec3) {
	lo, hi = c.particles.Pos[0], c.particles.Pos[0]
	for _, x := range c.particles.Pos[1:] {
		for k := 0; k < 3; k++ {
			if x[k] < lo[k] {
				lo[k] = x[k]
			}
			if x[k] > hi[k] {
				hi[k] = x[k]
			}
		}
	}
	return lo, hi
}
