package control

import "github.com/go-gl/mathgl/mgl64"

// Manual holds a cursor position set from outside the simulation, e.g. by
// mouse input or a streaming client.
type Manual struct {
	Pos mgl64.Vec3
}

func NewManual(start mgl64.Vec3) *Manual {
	return &Manual{Pos: start}
}

func (m *Manual) Name() string { return "manual" }

// Set moves the cursor.
func (m *Manual) Set(p mgl64.Vec3) { m.Pos = p }

// Nudge moves the cursor by d.
func (m *Manual) Nudge(d mgl64.Vec3) { m.Pos = m.Pos.Add(d) }

func (m *Manual) Position(t float64) mgl64.Vec3 { return m.Pos }
