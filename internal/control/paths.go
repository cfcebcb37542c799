package control

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Press moves the cursor up and down through Center along y, starting at
// the top of its stroke.
type Press struct {
	Center    mgl64.Vec3
	Amplitude float64
	Period    float64
}

func (p *Press) Name() string { return "press" }

func (p *Press) Position(t float64) mgl64.Vec3 {
	phase := 2 * math.Pi * t / p.Period
	return p.Center.Add(mgl64.Vec3{0, p.Amplitude * math.Cos(phase), 0})
}

// Sweep moves the cursor linearly from Start to End once per Period, then
// jumps back to Start.
type Sweep struct {
	Start  mgl64.Vec3
	End    mgl64.Vec3
	Period float64
}

func (s *Sweep) Name() string { return "sweep" }

func (s *Sweep) Position(t float64) mgl64.Vec3 {
	frac := math.Mod(t, s.Period) / s.Period
	if frac < 0 {
		frac += 1
	}
	return s.Start.Add(s.End.Sub(s.Start).Mul(frac))
}

// Hold lowers the cursor from Start along -y until the device force
// magnitude settles at the PID target.
type Hold struct {
	Start mgl64.Vec3
	PID   *PID
	depth float64
	lastT float64
}

func NewHold(start mgl64.Vec3, target float64) *Hold {
	return &Hold{Start: start, PID: NewPID(2, 0.5, 0, target)}
}

func (h *Hold) Name() string { return "hold" }

func (h *Hold) Position(t float64) mgl64.Vec3 {
	return h.Start.Sub(mgl64.Vec3{0, h.depth, 0})
}

// Feedback integrates the PID output into the cursor depth.
func (h *Hold) Feedback(device mgl64.Vec3, t float64) {
	u := h.PID.Compute(device.Len(), t)
	dt := t - h.lastT
	h.lastT = t
	if dt <= 0 {
		return
	}
	h.depth += u * dt
	if h.depth < 0 {
		h.depth = 0
	}
}

func (h *Hold) Depth() float64 { return h.depth }
