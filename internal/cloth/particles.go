package cloth

import "github.com/go-gl/mathgl/mgl64"

// Particles is the per-node store. All slices have the same length and are
// indexed by the flat node index row*Cols + col.
type Particles struct {
	Cols, Rows int

	Pos      []mgl64.Vec3
	Vel      []mgl64.Vec3
	Force    []mgl64.Vec3
	External []mgl64.Vec3
	Fixed    []bool

	// initial positions, kept for Reset
	rest []mgl64.Vec3
}

func newParticles(cols, rows int) *Particles {
	n := cols * rows
	return &Particles{
		Cols:     cols,
		Rows:     rows,
		Pos:      make([]mgl64.Vec3, n),
		Vel:      make([]mgl64.Vec3, n),
		Force:    make([]mgl64.Vec3, n),
		External: make([]mgl64.Vec3, n),
		Fixed:    make([]bool, n),
		rest:     make([]mgl64.Vec3, n),
	}
}

// Len returns the number of nodes.
func (p *Particles) Len() int { return len(p.Pos) }

// Index maps (row, col) to a flat index. ok is false outside the lattice.
func (p *Particles) Index(row, col int) (int, bool) {
	if row < 0 || row >= p.Rows || col < 0 || col >= p.Cols {
		return 0, false
	}
	return row*p.Cols + col, true
}

// RowCol is the inverse of Index.
func (p *Particles) RowCol(i int) (row, col int) {
	return i / p.Cols, i % p.Cols
}

func (p *Particles) check(i int) error {
	if i < 0 || i >= len(p.Pos) {
		return &NodeError{Index: i, Nodes: len(p.Pos)}
	}
	return nil
}

// layout places nodes on the lattice and records the reference configuration.
func (p *Particles) layout(g Grid) {
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			var local mgl64.Vec3
			switch g.Orientation {
			case Vertical:
				local = mgl64.Vec3{float64(c) * g.SpacingX, -float64(r) * g.SpacingY, 0}
			default:
				local = mgl64.Vec3{float64(c) * g.SpacingX, 0, float64(r) * g.SpacingZ}
			}
			i := r*p.Cols + c
			p.Pos[i] = g.Offset.Add(local)
			p.rest[i] = p.Pos[i]
		}
	}
}

func (p *Particles) pin(pinning Pinning) {
	last := p.Cols - 1
	bottom := p.Rows - 1
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			i := r*p.Cols + c
			switch pinning {
			case PinCorners:
				p.Fixed[i] = (r == 0 || r == bottom) && (c == 0 || c == last)
			case PinTopCorners:
				p.Fixed[i] = r == 0 && (c == 0 || c == last)
			case PinTopEdge:
				p.Fixed[i] = r == 0
			case PinLeftEdge:
				p.Fixed[i] = c == 0
			default:
				p.Fixed[i] = false
			}
		}
	}
}

func (p *Particles) reset() {
	copy(p.Pos, p.rest)
	for i := range p.Vel {
		p.Vel[i] = mgl64.Vec3{}
		p.Force[i] = mgl64.Vec3{}
		p.External[i] = mgl64.Vec3{}
	}
}
