package cloth

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func smallParams() Params {
	p := DefaultParams()
	p.Grid = Grid{Cols: 3, Rows: 3, SpacingX: 1, SpacingY: 1, SpacingZ: 1, Offset: mgl64.Vec3{0, 2, 0}}
	return p
}

func mustNew(t *testing.T, p Params) *Cloth {
	t.Helper()
	c, err := New(p)
	if err != nil {
		t.Fatalf("new cloth: %v", err)
	}
	return c
}

func TestNewRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		want   error
	}{
		{"too few cols", func(p *Params) { p.Grid.Cols = 2 }, ErrGridTooSmall},
		{"too few rows", func(p *Params) { p.Grid.Rows = 1 }, ErrGridTooSmall},
		{"zero mass", func(p *Params) { p.Mass = 0 }, ErrInvalidMass},
		{"negative mass", func(p *Params) { p.Mass = -1 }, ErrInvalidMass},
		{"nan mass", func(p *Params) { p.Mass = math.NaN() }, ErrInvalidMass},
		{"zero epsilon", func(p *Params) { p.Epsilon = 0 }, ErrInvalidParams},
		{"negative iterations", func(p *Params) { p.CorrectionIterations = -1 }, ErrInvalidParams},
		{"zero spacing", func(p *Params) { p.Grid.SpacingX = 0 }, ErrInvalidParams},
		{"inf gravity", func(p *Params) { p.Gravity[1] = math.Inf(-1) }, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			c, err := New(p)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if c != nil {
				t.Error("expected nil cloth on error")
			}
		})
	}
}

func TestSpringCounts(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows int
		springs    Springs
		want       int
	}{
		{"default 21x21", 21, 21, DefaultParams().Springs, 840 + 800 + 840},
		{"3x3 structural", 3, 3, Springs{Structural: SpringFamily{Ks: 1, Enabled: true}}, 12},
		{"3x3 shear", 3, 3, Springs{Shear: SpringFamily{Ks: 1, Enabled: true}}, 8},
		{"3x3 bend", 3, 3, Springs{Bend: SpringFamily{Ks: 1, Enabled: true}}, 12},
		{"4x3 all", 4, 3, DefaultParams().Springs, 17 + 12 + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.Grid.Cols, p.Grid.Rows = tt.cols, tt.rows
			p.Springs = tt.springs
			c := mustNew(t, p)

			if got := len(c.Springs()); got != tt.want {
				t.Errorf("expected %d springs, got %d", tt.want, got)
			}
			if got := SpringCount(tt.cols, tt.rows, tt.springs); got != tt.want {
				t.Errorf("SpringCount: expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRestLengthsMatchInitialLayout(t *testing.T) {
	c := mustNew(t, DefaultParams())
	pos := c.Positions()
	for i, s := range c.Springs() {
		want := pos[s.P1].Sub(pos[s.P2]).Len()
		if s.RestLength != want {
			t.Fatalf("spring %d (%v %d-%d): rest %v, distance %v", i, s.Type, s.P1, s.P2, s.RestLength, want)
		}
	}
}

func TestBendWrapDuplicatesLastSpring(t *testing.T) {
	p := smallParams()
	p.Springs = Springs{Bend: SpringFamily{Ks: 1, Enabled: true}}
	c := mustNew(t, p)

	// 3 columns: per row one regular bend (0,2) and its wrap duplicate.
	springs := c.Springs()
	if springs[0].P1 != 0 || springs[0].P2 != 2 || springs[1].P1 != 0 || springs[1].P2 != 2 {
		t.Errorf("expected duplicated 0-2 bend spring, got %+v %+v", springs[0], springs[1])
	}
}

func TestPinning(t *testing.T) {
	tests := []struct {
		pinning Pinning
		want    []int
	}{
		{PinNone, []int{}},
		{PinCorners, []int{0, 2, 6, 8}},
		{PinTopCorners, []int{0, 2}},
		{PinTopEdge, []int{0, 1, 2}},
		{PinLeftEdge, []int{0, 3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.pinning.String(), func(t *testing.T) {
			p := smallParams()
			p.Pinning = tt.pinning
			c := mustNew(t, p)
			got := c.FixedIndices()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestParsePinning(t *testing.T) {
	for _, name := range PinningNames() {
		p, err := ParsePinning(name)
		if err != nil {
			t.Errorf("parse %q: %v", name, err)
			continue
		}
		if p.String() != name {
			t.Errorf("round trip: %q became %q", name, p.String())
		}
	}
	if p, _ := ParsePinning(""); p != PinCorners {
		t.Errorf("empty pinning: expected corners, got %v", p)
	}
	if _, err := ParsePinning("diagonal"); err == nil {
		t.Error("expected error for unknown pinning")
	}
}

func TestVerticalLayout(t *testing.T) {
	p := smallParams()
	p.Grid.Orientation = Vertical
	p.Grid.SpacingY = 0.5
	c := mustNew(t, p)

	pos, err := c.Position(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := mgl64.Vec3{1, 1, 0}
	if !pos.ApproxEqual(want) {
		t.Errorf("expected %v, got %v", want, pos)
	}
}

func TestAdvanceRejectsBadStep(t *testing.T) {
	c := mustNew(t, smallParams())
	for _, dt := range []float64{0, -0.01, math.NaN(), math.Inf(1)} {
		if err := c.Advance(dt); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("dt=%v: expected ErrInvalidStep, got %v", dt, err)
		}
	}
	if c.Tick() != 0 {
		t.Errorf("rejected steps must not advance, tick=%d", c.Tick())
	}
}

func TestOutOfRangeAccess(t *testing.T) {
	c := mustNew(t, smallParams())

	if _, err := c.Position(3, 0); !errors.Is(err, ErrNodeOutOfRange) {
		t.Errorf("Position: expected ErrNodeOutOfRange, got %v", err)
	}
	if err := c.SetExternalForce(0, -1, mgl64.Vec3{}); !errors.Is(err, ErrNodeOutOfRange) {
		t.Errorf("SetExternalForce: expected ErrNodeOutOfRange, got %v", err)
	}

	err := c.SetExternalForceAt(9, mgl64.Vec3{1, 0, 0})
	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("expected *NodeError, got %v", err)
	}
	if nodeErr.Index != 9 || nodeErr.Nodes != 9 {
		t.Errorf("unexpected error detail: %+v", nodeErr)
	}
	if !errors.Is(err, ErrNodeOutOfRange) {
		t.Error("NodeError should unwrap to ErrNodeOutOfRange")
	}
	if _, err := c.IsFixed(-1); err == nil {
		t.Error("IsFixed(-1) should fail")
	}
}

func TestDegenerateSpringSkipped(t *testing.T) {
	c := mustNew(t, smallParams())
	c.particles.Pos[4] = c.particles.Pos[3]

	if err := c.Advance(0.01); err != nil {
		t.Fatal(err)
	}
	if got := c.Stats().Degenerate; got != 1 {
		t.Errorf("expected 1 degenerate spring, got %d", got)
	}
	if !c.Valid() {
		t.Error("state became non-finite")
	}
}

func TestExternalForceAccumulated(t *testing.T) {
	p := smallParams()
	p.Gravity = mgl64.Vec3{}
	c := mustNew(t, p)

	f := mgl64.Vec3{0.5, 0, 0}
	if err := c.SetExternalForce(1, 1, f); err != nil {
		t.Fatal(err)
	}
	if err := c.Advance(0.1); err != nil {
		t.Fatal(err)
	}
	got, _ := c.ForceAt(4)
	if !got.ApproxEqual(f) {
		t.Errorf("expected force %v, got %v", f, got)
	}
	v, _ := c.Velocity(1, 1)
	want := f.Mul(0.1 / p.Mass)
	if !v.ApproxEqual(want) {
		t.Errorf("expected velocity %v, got %v", want, v)
	}

	c.ClearExternalForces()
	if ext, _ := c.ExternalForceAt(4); ext != (mgl64.Vec3{}) {
		t.Errorf("expected cleared force, got %v", ext)
	}
}

func TestCorrectionShortensStretchedSpring(t *testing.T) {
	p := smallParams()
	p.Springs = Springs{Structural: SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}, Shear: SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}}
	p.Gravity = mgl64.Vec3{}
	p.Ground.Enabled = false

	run := func(iterations int) float64 {
		p.CorrectionIterations = iterations
		c := mustNew(t, p)
		c.particles.Pos[4] = c.particles.Pos[4].Add(mgl64.Vec3{0.5, 0, 0})
		for i := 0; i < 2; i++ {
			if err := c.Advance(0.01); err != nil {
				t.Fatal(err)
			}
		}
		return c.particles.Pos[4].Sub(c.particles.Pos[3]).Len()
	}

	without := run(0)
	with := run(1)
	if !(with < without) {
		t.Errorf("expected corrected length %v < uncorrected %v", with, without)
	}
}

func TestCorrectionCountsStretchedSprings(t *testing.T) {
	p := smallParams()
	p.Gravity = mgl64.Vec3{}
	p.Springs = Springs{Structural: SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}}
	p.CorrectionIterations = 3
	c := mustNew(t, p)
	c.particles.Pos[4] = c.particles.Pos[4].Add(mgl64.Vec3{0, 0.5, 0})

	if err := c.Advance(0.001); err != nil {
		t.Fatal(err)
	}
	// all four springs at the center are stretched on every pass
	if got := c.Stats().Corrected; got != 12 {
		t.Errorf("expected 12 corrections, got %d", got)
	}
}

func TestFloorClamp(t *testing.T) {
	c := mustNew(t, smallParams())
	c.particles.Vel[4] = mgl64.Vec3{0, -300, 0}

	if err := c.Advance(0.01); err != nil {
		t.Fatal(err)
	}
	pos, _ := c.Position(1, 1)
	if pos[1] != 0 {
		t.Errorf("expected y clamped to 0, got %v", pos[1])
	}
	vel, _ := c.Velocity(1, 1)
	if vel[1] >= 0 {
		t.Errorf("clamp must not touch velocity, got %v", vel)
	}
}

func TestTriangles(t *testing.T) {
	c := mustNew(t, smallParams())
	tris := c.Triangles()
	if len(tris) != 24 {
		t.Fatalf("expected 24 indices, got %d", len(tris))
	}
	want := []uint32{0, 3, 4, 0, 4, 1, 1, 4, 2, 2, 4, 5}
	for i, w := range want {
		if tris[i] != w {
			t.Errorf("index %d: expected %d, got %d", i, w, tris[i])
		}
	}
	if got := len(c.Edges()); got != 12 {
		t.Errorf("expected 12 edges, got %d", got)
	}
}

func TestPick(t *testing.T) {
	c := mustNew(t, DefaultParams())
	target, _ := c.PositionAt(37)

	i, ok := c.Pick(target.Add(mgl64.Vec3{0.01, 0, 0}), DefaultPickRadius)
	if !ok || i != 37 {
		t.Errorf("expected node 37, got %d (ok=%v)", i, ok)
	}
	if _, ok := c.Pick(mgl64.Vec3{100, 100, 100}, DefaultPickRadius); ok {
		t.Error("expected no pick far from the cloth")
	}
}

func TestPickRay(t *testing.T) {
	c := mustNew(t, DefaultParams())
	target, _ := c.PositionAt(37)

	origin := target.Add(mgl64.Vec3{0.02, 5, 0})
	i, ok := c.PickRay(origin, mgl64.Vec3{0, -2, 0}, DefaultPickRadius)
	if !ok || i != 37 {
		t.Errorf("expected node 37, got %d (ok=%v)", i, ok)
	}
	if _, ok := c.PickRay(origin, mgl64.Vec3{0, 1, 0}, DefaultPickRadius); ok {
		t.Error("ray pointing away should not pick")
	}
	if _, ok := c.PickRay(origin, mgl64.Vec3{}, DefaultPickRadius); ok {
		t.Error("zero direction should not pick")
	}
	if i, ok := c.Snapshot(nil).PickRay(origin, mgl64.Vec3{0, -1, 0}, DefaultPickRadius); !ok || i != 37 {
		t.Errorf("snapshot pick: expected node 37, got %d (ok=%v)", i, ok)
	}
}

func TestEnergyAtRest(t *testing.T) {
	p := smallParams()
	c := mustNew(t, p)

	if ke := c.KineticEnergy(); ke != 0 {
		t.Errorf("expected zero kinetic energy, got %v", ke)
	}
	if s := c.MaxStretch(); math.Abs(s-1) > 1e-12 {
		t.Errorf("expected max stretch 1, got %v", s)
	}
	// five free nodes at y=2 above the floor, no spring energy
	want := 5 * 2 * -p.Gravity[1]
	if pe := c.PotentialEnergy(); math.Abs(pe-want) > 1e-12 {
		t.Errorf("expected potential %v, got %v", want, pe)
	}
}

func TestResetRestoresLayout(t *testing.T) {
	c := mustNew(t, DefaultParams())
	for i := 0; i < 50; i++ {
		if err := c.Advance(1.0 / 120); err != nil {
			t.Fatal(err)
		}
	}
	c.Reset()

	rest := c.RestPositions()
	for i, x := range c.Positions() {
		if x != rest[i] {
			t.Fatalf("node %d: expected %v, got %v", i, rest[i], x)
		}
	}
	if c.Tick() != 0 || c.Time() != 0 || c.KineticEnergy() != 0 {
		t.Error("reset must clear tick, time and velocity")
	}
}

func TestSnapshotReusesBuffers(t *testing.T) {
	c := mustNew(t, smallParams())
	snap := c.Snapshot(nil)
	first := &snap.Positions[0]

	if err := c.Advance(0.01); err != nil {
		t.Fatal(err)
	}
	snap = c.Snapshot(snap)
	if &snap.Positions[0] != first {
		t.Error("expected snapshot to reuse its position buffer")
	}
	if snap.Tick != 1 || len(snap.Positions) != 9 || len(snap.Flatten()) != 27 {
		t.Errorf("unexpected snapshot: tick=%d nodes=%d", snap.Tick, len(snap.Positions))
	}

	clone := snap.Clone()
	clone.Positions[0][0] = 42
	if snap.Positions[0][0] == 42 {
		t.Error("clone shares memory with the source snapshot")
	}
}

func TestSetSpringConstants(t *testing.T) {
	c := mustNew(t, smallParams())
	c.SetSpringConstants(Shear, 2, -1)
	for _, s := range c.Springs() {
		if s.Type == Shear && (s.Ks != 2 || s.Kd != -1) {
			t.Fatalf("shear spring not updated: %+v", s)
		}
		if s.Type == Structural && s.Ks != DefaultKsStruct {
			t.Fatalf("structural spring changed: %+v", s)
		}
	}
	if c.Params().Springs.Shear.Ks != 2 {
		t.Error("params not updated")
	}
}
