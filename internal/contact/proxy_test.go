package contact

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/control"
)

func TestForce(t *testing.T) {
	tests := []struct {
		name   string
		cursor mgl64.Vec3
		want   mgl64.Vec3
	}{
		{"coincident", mgl64.Vec3{}, mgl64.Vec3{}},
		{"apart", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}},
		{"just outside", mgl64.Vec3{0, 0.15 + 1e-9, 0}, mgl64.Vec3{}},
		{"overlap above", mgl64.Vec3{0, 0.1, 0}, mgl64.Vec3{0, 0.05 * 100, 0}},
		{"overlap side", mgl64.Vec3{-0.05, 0, 0}, mgl64.Vec3{-0.1 * 100, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Force(tt.cursor, 0.1, mgl64.Vec3{}, 0.05, 100)
			if !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestForceAtContactDistance(t *testing.T) {
	// 0.1+0.05 is not exactly 0.15, so only the magnitude is checked
	got := Force(mgl64.Vec3{0, 0.15, 0}, 0.1, mgl64.Vec3{}, 0.05, 100)
	if got.Len() > 1e-12 {
		t.Errorf("expected no force at the contact distance, got %v", got)
	}
}

func testCloth(t *testing.T) *cloth.Cloth {
	t.Helper()
	p := cloth.DefaultParams()
	p.Grid = cloth.Grid{Cols: 3, Rows: 3, SpacingX: 1, SpacingZ: 1}
	c, err := cloth.New(p)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestApplySetsReactions(t *testing.T) {
	c := testCloth(t)
	center, _ := c.Position(1, 1)
	cursor := center.Add(mgl64.Vec3{0, 0.1, 0})

	proxy := New(DefaultParams(), control.NewManual(cursor))
	device, err := proxy.Apply(c, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := mgl64.Vec3{0, 5, 0}
	if !device.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("expected device force %v, got %v", want, device)
	}
	ext, _ := c.ExternalForceAt(4)
	if !ext.ApproxEqualThreshold(want.Mul(-1), 1e-9) {
		t.Errorf("expected node reaction %v, got %v", want.Mul(-1), ext)
	}
	if proxy.Contacts() != 1 {
		t.Errorf("expected 1 contact, got %d", proxy.Contacts())
	}

	// moving away clears the previous reaction
	proxy.SetCursor(mgl64.Vec3{10, 10, 10})
	if _, err := proxy.Apply(c, 0.1); err != nil {
		t.Fatal(err)
	}
	if ext, _ := c.ExternalForceAt(4); ext != (mgl64.Vec3{}) {
		t.Errorf("expected cleared reaction, got %v", ext)
	}
}

func TestSetCursorReplacesDriver(t *testing.T) {
	proxy := New(DefaultParams(), &control.Sweep{End: mgl64.Vec3{1, 0, 0}, Period: 1})
	proxy.SetCursor(mgl64.Vec3{0, 3, 0})

	if proxy.Driver().Name() != "manual" {
		t.Errorf("expected manual driver, got %s", proxy.Driver().Name())
	}
	if proxy.Cursor() != (mgl64.Vec3{0, 3, 0}) {
		t.Errorf("unexpected cursor %v", proxy.Cursor())
	}
}

func TestPressDrivesCloth(t *testing.T) {
	c := testCloth(t)
	center, _ := c.Position(1, 1)
	press := &control.Press{Center: center, Amplitude: 0.2, Period: 1}
	proxy := New(DefaultParams(), press)

	maxForce := 0.0
	for i := 0; i < 500; i++ {
		device, err := proxy.Apply(c, c.Time())
		if err != nil {
			t.Fatal(err)
		}
		maxForce = math.Max(maxForce, device.Len())
		if err := c.Advance(0.001); err != nil {
			t.Fatal(err)
		}
	}
	if maxForce == 0 {
		t.Error("expected the pressing cursor to touch the cloth")
	}
	if !c.Valid() {
		t.Error("cloth state became invalid")
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	bad := DefaultParams()
	bad.Stiffness = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative stiffness")
	}
}
