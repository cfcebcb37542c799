package metrics

import (
	"math"

	"github.com/san-kum/clothsim/internal/sim"
)

// Stability is the fraction of ticks whose state is finite and whose node
// speeds stay below threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f *sim.Frame) {
	s.samples++
	c := f.Cloth
	if !c.Valid() {
		s.violations++
		return
	}
	for i := 0; i < c.Nodes(); i++ {
		v, _ := c.VelocityAt(i)
		if math.Abs(v.Len()) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
