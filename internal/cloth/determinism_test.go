package cloth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pmezard/go-difflib/difflib"
)

// trace runs the default scene with a moving external push and records
// every node position at full precision.
func trace(t *testing.T, ticks int) string {
	t.Helper()
	c := mustNew(t, DefaultParams())
	var sb strings.Builder

	for tick := 0; tick < ticks; tick++ {
		c.ClearExternalForces()
		node := (tick * 7) % c.Nodes()
		if err := c.SetExternalForceAt(node, mgl64.Vec3{0.001, -0.002, 0.0005}); err != nil {
			t.Fatal(err)
		}
		dt := 0.001 + 0.0001*float64(tick%5)
		if err := c.Advance(dt); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < c.Nodes(); i += 20 {
			p, _ := c.PositionAt(i)
			fmt.Fprintf(&sb, "%d %d %.17g %.17g %.17g\n", tick, i, p[0], p[1], p[2])
		}
	}
	return sb.String()
}

func TestDeterministicTrajectory(t *testing.T) {
	a := trace(t, 200)
	b := trace(t, 200)

	if a != b {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: "First",
			ToFile:   "Second",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("trajectories differ between identical runs:\n%s", text)
	}
}

var expectedFirstTick = `0 0.000000 0.000000 0.000000
1 0.000000 -0.163500 0.000000
2 0.000000 0.000000 0.000000
3 0.000000 -0.163500 0.000000
4 0.000000 -0.163500 0.000000
5 0.000000 -0.163500 0.000000
6 0.000000 0.000000 0.000000
7 0.000000 -0.163500 0.000000
8 0.000000 0.000000 0.000000
`

func TestFirstTickVelocities(t *testing.T) {
	p := smallParams()
	p.Springs = Springs{Structural: SpringFamily{Ks: 0.5, Kd: -0.25, Enabled: true}}
	p.Gravity = mgl64.Vec3{0, -9.81, 0}
	c := mustNew(t, p)
	if err := c.Advance(1.0 / 120); err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	for i := 0; i < c.Nodes(); i++ {
		v, _ := c.VelocityAt(i)
		fmt.Fprintf(&sb, "%d %.6f %.6f %.6f\n", i, v[0], v[1], v[2])
	}
	got := sb.String()

	if got != expectedFirstTick {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(expectedFirstTick),
			B:        difflib.SplitLines(got),
			FromFile: "Expected",
			ToFile:   "Current",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("first tick velocities mismatch:\n%s", text)
	}
}
