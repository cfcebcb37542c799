package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("DefaultConfig does not validate: %v", err)
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}

func TestResultSeries(t *testing.T) {
	r := &Result{Frames: []*cloth.Snapshot{
		{Positions: []mgl64.Vec3{{0, 1, 0}, {0, 2, 0}}},
		{Positions: []mgl64.Vec3{{0, 0.5, 0}, {0, 1.5, 0}}},
	}}

	got := r.Series(1)
	if len(got) != 2 || got[0] != 2 || got[1] != 1.5 {
		t.Errorf("Series(1) = %v", got)
	}
	if len(r.Series(5)) != 0 {
		t.Error("out-of-range node should yield an empty series")
	}
}

func TestSnapshotPool(t *testing.T) {
	pool := NewSnapshotPool(2)
	src := &cloth.Snapshot{Tick: 3, Positions: []mgl64.Vec3{{1, 2, 3}, {4, 5, 6}}, Velocities: make([]mgl64.Vec3, 2), Fixed: []bool{true, false}}

	dst := pool.Get()
	copySnapshot(dst, src)
	if dst.Tick != 3 || dst.Positions[1] != src.Positions[1] || !dst.Fixed[0] {
		t.Errorf("copy mismatch: %+v", dst)
	}
	dst.Positions[0][0] = 99
	if src.Positions[0][0] == 99 {
		t.Error("pooled copy shares memory with source")
	}
	pool.Put(dst)
	pool.Put(&cloth.Snapshot{})
}
