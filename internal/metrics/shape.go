package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// MaxStretch is the largest spring dist/rest ratio seen during the run.
type MaxStretch struct {
	max float64
}

func NewMaxStretch() *MaxStretch { return &MaxStretch{} }

func (m *MaxStretch) Name() string { return "max_stretch" }

func (m *MaxStretch) Observe(f *sim.Frame) {
	m.max = math.Max(m.max, f.Cloth.MaxStretch())
}

func (m *MaxStretch) Value() float64 { return m.max }
func (m *MaxStretch) Reset()         { m.max = 0 }

// Sag is the most negative vertical displacement of any node from its
// construction position.
type Sag struct {
	rest    []float64
	deepest float64
}

func NewSag() *Sag { return &Sag{} }

func (s *Sag) Name() string { return "sag" }

func (s *Sag) Observe(f *sim.Frame) {
	c := f.Cloth
	if s.rest == nil {
		rest := c.RestPositions()
		s.rest = make([]float64, len(rest))
		for i, p := range rest {
			s.rest[i] = p[1]
		}
	}
	for i := 0; i < c.Nodes() && i < len(s.rest); i++ {
		p, _ := c.PositionAt(i)
		if d := p[1] - s.rest[i]; d < s.deepest {
			s.deepest = d
		}
	}
}

func (s *Sag) Value() float64 { return s.deepest }

func (s *Sag) Reset() {
	s.rest = nil
	s.deepest = 0
}
