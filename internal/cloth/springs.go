package cloth

import "fmt"

// SpringType tags the family a spring belongs to.
type SpringType int

const (
	Structural SpringType = iota
	Shear
	Bend
)

func (t SpringType) String() string {
	switch t {
	case Structural:
		return "structural"
	case Shear:
		return "shear"
	case Bend:
		return "bend"
	}
	return fmt.Sprintf("spring(%d)", int(t))
}

// Spring is a damped elastic link between nodes P1 and P2.
// RestLength is fixed at construction.
type Spring struct {
	P1, P2     int
	Ks, Kd     float64
	Type       SpringType
	RestLength float64
}

type network struct {
	springs []Spring
}

func (n *network) add(p *Particles, a, b int, fam SpringFamily, t SpringType) {
	n.springs = append(n.springs, Spring{
		P1:         a,
		P2:         b,
		Ks:         fam.Ks,
		Kd:         fam.Kd,
		Type:       t,
		RestLength: p.Pos[a].Sub(p.Pos[b]).Len(),
	})
}

// buildNetwork connects the lattice. The grid must be at least 3x3.
func buildNetwork(p *Particles, s Springs) *network {
	u, v := p.Cols, p.Rows
	n := &network{springs: make([]Spring, 0, SpringCount(u, v, s))}
	idx := func(r, c int) int { return r*u + c }

	if s.Structural.Enabled {
		for r := 0; r < v; r++ {
			for c := 0; c < u-1; c++ {
				n.add(p, idx(r, c), idx(r, c+1), s.Structural, Structural)
			}
		}
		for c := 0; c < u; c++ {
			for r := 0; r < v-1; r++ {
				n.add(p, idx(r, c), idx(r+1, c), s.Structural, Structural)
			}
		}
	}

	if s.Shear.Enabled {
		for r := 0; r < v-1; r++ {
			for c := 0; c < u-1; c++ {
				n.add(p, idx(r, c), idx(r+1, c+1), s.Shear, Shear)
				n.add(p, idx(r+1, c), idx(r, c+1), s.Shear, Shear)
			}
		}
	}

	if s.Bend.Enabled {
		for r := 0; r < v; r++ {
			for c := 0; c < u-2; c++ {
				n.add(p, idx(r, c), idx(r, c+2), s.Bend, Bend)
			}
			// edge wrap; duplicates the last bend spring of the row
			n.add(p, idx(r, u-3), idx(r, u-1), s.Bend, Bend)
		}
		for c := 0; c < u; c++ {
			for r := 0; r < v-2; r++ {
				n.add(p, idx(r, c), idx(r+2, c), s.Bend, Bend)
			}
			n.add(p, idx(v-3, c), idx(v-1, c), s.Bend, Bend)
		}
	}

	return n
}

// SpringCount returns the number of springs buildNetwork creates for a
// cols x rows lattice with the given families enabled.
func SpringCount(cols, rows int, s Springs) int {
	total := 0
	if s.Structural.Enabled {
		total += rows*(cols-1) + cols*(rows-1)
	}
	if s.Shear.Enabled {
		total += 2 * (rows - 1) * (cols - 1)
	}
	if s.Bend.Enabled {
		total += rows*(cols-2) + rows + cols*(rows-2) + cols
	}
	return total
}
