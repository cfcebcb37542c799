package cloth

// correct applies one Provot dynamic inverse pass. Over-stretched springs
// receive a velocity correction of half their excess length along the spring
// axis, split between the free endpoints. It returns the number of springs
// corrected.
func (c *Cloth) correct() int {
	p := c.particles
	corrected := 0

	for k := range c.net.springs {
		s := &c.net.springs[k]
		fixed1, fixed2 := p.Fixed[s.P1], p.Fixed[s.P2]
		if fixed1 && fixed2 {
			continue
		}

		deltaP := p.Pos[s.P1].Sub(p.Pos[s.P2])
		dist := deltaP.Len()
		if dist < c.params.Epsilon || dist <= s.RestLength {
			continue
		}

		excess := (dist - s.RestLength) / 2
		corr := deltaP.Mul(excess / dist)

		switch {
		case fixed1:
			p.Vel[s.P2] = p.Vel[s.P2].Add(corr)
		case fixed2:
			p.Vel[s.P1] = p.Vel[s.P1].Sub(corr)
		default:
			p.Vel[s.P1] = p.Vel[s.P1].Sub(corr)
			p.Vel[s.P2] = p.Vel[s.P2].Add(corr)
		}
		corrected++
	}

	return corrected
}
