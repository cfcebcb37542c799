package cloth

// integrate advances free nodes with semi-implicit Euler: the velocity takes
// this tick's force while the position moves with the velocity from before
// the update. Fixed nodes are left untouched.
func (c *Cloth) integrate(dt float64) {
	p := c.particles
	dtMass := dt / c.params.Mass
	ground := c.params.Ground

	for i := range p.Pos {
		if p.Fixed[i] {
			continue
		}
		oldV := p.Vel[i]
		p.Vel[i] = p.Vel[i].Add(p.Force[i].Mul(dtMass))
		p.Pos[i] = p.Pos[i].Add(oldV.Mul(dt))

		if ground.Enabled && p.Pos[i][1] < ground.Height {
			p.Pos[i][1] = ground.Height
		}
	}
}
