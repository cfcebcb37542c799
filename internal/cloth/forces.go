package cloth

import "github.com/go-gl/mathgl/mgl64"

// accumulate fills p.Force for one tick and returns the number of springs
// skipped as degenerate.
func (c *Cloth) accumulate() int {
	p := c.particles
	g := c.params.Gravity
	damping := c.params.Damping

	for i := range p.Force {
		if p.Fixed[i] {
			p.Force[i] = mgl64.Vec3{}
			continue
		}
		p.Force[i] = g.Add(p.Vel[i].Mul(damping))
	}

	skipped := 0
	for k := range c.net.springs {
		s := &c.net.springs[k]
		deltaP := p.Pos[s.P1].Sub(p.Pos[s.P2])
		dist := deltaP.Len()
		if dist < c.params.Epsilon {
			skipped++
			continue
		}
		deltaV := p.Vel[s.P1].Sub(p.Vel[s.P2])

		left := -s.Ks * (dist - s.RestLength)
		right := s.Kd * (deltaV.Dot(deltaP) / dist)
		f := deltaP.Mul((left + right) / dist)

		if !p.Fixed[s.P1] {
			p.Force[s.P1] = p.Force[s.P1].Add(f)
		}
		if !p.Fixed[s.P2] {
			p.Force[s.P2] = p.Force[s.P2].Sub(f)
		}
	}

	for i := range p.Force {
		if !p.Fixed[i] {
			p.Force[i] = p.Force[i].Add(p.External[i])
		}
	}

	return skipped
}
