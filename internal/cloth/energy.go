package cloth

// KineticEnergy returns sum(0.5 * m * |v|^2) over all nodes.
func (c *Cloth) KineticEnergy() float64 {
	ke := 0.0
	for _, v := range c.particles.Vel {
		ke += 0.5 * c.params.Mass * v.Dot(v)
	}
	return ke
}

// PotentialEnergy returns the gravitational potential of the free nodes,
// measured from the ground height, plus the elastic energy stored in the
// springs.
func (c *Cloth) PotentialEnergy() float64 {
	p := c.particles
	g := c.params.Gravity
	ground := c.params.Ground.Height
	pe := 0.0

	for i, x := range p.Pos {
		if p.Fixed[i] {
			continue
		}
		h := x
		h[1] -= ground
		pe -= g.Dot(h)
	}
	for _, s := range c.net.springs {
		stretch := p.Pos[s.P1].Sub(p.Pos[s.P2]).Len() - s.RestLength
		pe += 0.5 * s.Ks * stretch * stretch
	}
	return pe
}

// TotalEnergy is KineticEnergy + PotentialEnergy.
func (c *Cloth) TotalEnergy() float64 {
	return c.KineticEnergy() + c.PotentialEnergy()
}

// MaxStretch returns the largest dist/rest ratio over all springs. An
// undisturbed cloth reports 1.
func (c *Cloth) MaxStretch() float64 {
	p := c.particles
	worst := 0.0
	for _, s := range c.net.springs {
		if s.RestLength < c.params.Epsilon {
			continue
		}
		r := p.Pos[s.P1].Sub(p.Pos[s.P2]).Len() / s.RestLength
		if r > worst {
			worst = r
		}
	}
	return worst
}
