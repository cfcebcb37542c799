package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

func testCloth(t *testing.T) *cloth.Cloth {
	t.Helper()
	p := cloth.DefaultParams()
	p.Grid.Cols, p.Grid.Rows = 5, 5
	c, err := cloth.New(p)
	if err != nil {
		t.Fatalf("new cloth: %v", err)
	}
	return c
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(f *Frame) {
	t.count++
	t.sum += f.Cloth.KineticEnergy()
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type constantSource struct {
	node  int
	force mgl64.Vec3
	calls int
}

func (s *constantSource) Apply(c *cloth.Cloth, t float64) (mgl64.Vec3, error) {
	s.calls++
	c.ClearExternalForces()
	if err := c.SetExternalForceAt(s.node, s.force.Mul(-1)); err != nil {
		return mgl64.Vec3{}, err
	}
	return s.force, nil
}

func TestSimulatorRun(t *testing.T) {
	s := New(testCloth(t), nil)

	cfg := Config{Dt: 0.01, Duration: 1.0, RecordEvery: 10}
	result, err := s.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}
	if len(result.Frames) != 11 {
		t.Errorf("expected 11 frames, got %d", len(result.Frames))
	}
	if len(result.Times) != len(result.Frames) || len(result.Energy) != len(result.Frames) {
		t.Errorf("series length mismatch: %d times, %d energy", len(result.Times), len(result.Energy))
	}
	if result.Frames[0].Tick != 0 || result.Frames[10].Tick != 100 {
		t.Errorf("unexpected frame ticks %d..%d", result.Frames[0].Tick, result.Frames[10].Tick)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	series := result.Series(12)
	if len(series) != 11 || !(series[10] < series[0]) {
		t.Errorf("expected center node to sag, got %v", series)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative record interval", Config{Dt: 0.1, Duration: 1.0, RecordEvery: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testCloth(t), nil)
			if _, err := s.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorMetrics(t *testing.T) {
	s := New(testCloth(t), nil)
	metric := &testMetric{}
	s.AddMetric(metric)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestSimulatorForceSource(t *testing.T) {
	src := &constantSource{node: 12, force: mgl64.Vec3{0, 0.01, 0}}
	s := New(testCloth(t), src)

	result, err := s.Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 10 {
		t.Errorf("expected 10 source calls, got %d", src.calls)
	}
	last := result.DeviceForces[len(result.DeviceForces)-1]
	if last != src.force {
		t.Errorf("expected device force %v, got %v", src.force, last)
	}
}

func TestSimulatorSourceError(t *testing.T) {
	src := &constantSource{node: 1000}
	s := New(testCloth(t), src)

	result, err := s.Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 1 || result.StepsTaken != 0 {
		t.Fatalf("expected one error and no steps, got %v after %d steps", result.Errors, result.StepsTaken)
	}
	var simErr SimError
	if !errors.As(result.Errors[0], &simErr) || simErr.Step != 0 {
		t.Errorf("expected SimError at step 0, got %v", result.Errors[0])
	}
}

func TestSimulatorCancel(t *testing.T) {
	s := New(testCloth(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Run(ctx, Config{Dt: 0.01, Duration: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	s := New(testCloth(t), nil)
	calls := 0
	err := s.RunWithCallback(context.Background(), Config{Dt: 0.01, Duration: 1}, func(f *Frame) bool {
		calls++
		return f.Tick < 5
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 5 {
		t.Errorf("expected 5 callbacks, got %d", calls)
	}
}

func TestEnsembleRun(t *testing.T) {
	jobs := make([]Job, 4)
	for i := range jobs {
		cols := 3 + i
		jobs[i] = Job{
			Name: "job",
			Build: func() (*Simulator, error) {
				p := cloth.DefaultParams()
				p.Grid.Cols, p.Grid.Rows = cols, 3
				c, err := cloth.New(p)
				if err != nil {
					return nil, err
				}
				return New(c, nil), nil
			},
			Config: Config{Dt: 0.01, Duration: 0.1, RecordEvery: 5},
		}
	}

	results, err := NewEnsemble(2).Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if got := len(r.Frames[0].Positions); got != (3+i)*3 {
			t.Errorf("job %d: expected %d nodes, got %d", i, (3+i)*3, got)
		}
	}
}

func TestEnsembleBuildError(t *testing.T) {
	jobs := []Job{{
		Build:  func() (*Simulator, error) { return nil, cloth.ErrGridTooSmall },
		Config: DefaultConfig(),
	}}
	if _, err := NewEnsemble(0).Run(context.Background(), jobs); !errors.Is(err, cloth.ErrGridTooSmall) {
		t.Errorf("expected build error, got %v", err)
	}
}
