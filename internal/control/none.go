package control

import "github.com/go-gl/mathgl/mgl64"

// Parked is where None keeps the cursor: well outside any reasonable scene.
var Parked = mgl64.Vec3{0, 1e6, 0}

type None struct{}

func NewNone() *None { return &None{} }

func (n *None) Name() string                  { return "none" }
func (n *None) Position(t float64) mgl64.Vec3 { return Parked }
