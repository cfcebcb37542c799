package optim

import (
	"context"
	"testing"

	"github.com/san-kum/clothsim/internal/config"
)

func TestGridSearchPrefersStifferCloth(t *testing.T) {
	base := config.GetPreset("structural")
	base.Duration = 0.5
	base.Metrics = nil

	// larger stretch for softer springs; minimising it picks the stiffest
	g := NewGridSearch(
		[]string{"springs.structural.ks"},
		[][]float64{{0.5, 2, 8}},
	)
	best, val, trials, err := g.Search(context.Background(), base, "max_stretch")
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 3 {
		t.Errorf("expected 3 trials, got %d", len(trials))
	}
	if best["springs.structural.ks"] != 8 {
		t.Errorf("expected ks=8 to win, got %v (value %v)", best, val)
	}
	if val < 1 {
		t.Errorf("stretch ratio below 1 under gravity: %v", val)
	}
}

func TestGridSearchRecordsFailures(t *testing.T) {
	base := config.GetPreset("structural")
	base.Duration = 0.1

	g := NewGridSearch([]string{"mass"}, [][]float64{{0, 1}})
	best, _, trials, err := g.Search(context.Background(), base, "sag")
	if err != nil {
		t.Fatal(err)
	}
	if trials[0].Err == nil {
		t.Error("zero mass should fail")
	}
	if best["mass"] != 1 {
		t.Errorf("expected mass=1, got %v", best)
	}
}

func TestGridSearchMismatchedRanges(t *testing.T) {
	g := NewGridSearch([]string{"mass", "damping"}, [][]float64{{1}})
	if _, _, _, err := g.Search(context.Background(), config.DefaultConfig(), "sag"); err == nil {
		t.Error("expected error")
	}
}
