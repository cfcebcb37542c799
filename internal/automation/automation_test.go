package automation

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/storage"
)

const scenarioYAML = `name: sag-study
description: structural sheet then a softer one
steps:
  - preset: structural
    duration: 0.2
    save_as: baseline
  - preset: structural
    duration: 0.2
    params:
      springs.structural.ks: 0.5
`

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(scenario.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(scenario.Steps))
	}

	store := storage.New(filepath.Join(dir, "runs"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), scenario, store, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID == "" || results[1].RunID != "" {
		t.Errorf("only the save_as step should be stored: %q, %q", results[0].RunID, results[1].RunID)
	}

	runs, err := store.List()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one stored run, got %d (%v)", len(runs), err)
	}
}

func TestScenarioStepBadParam(t *testing.T) {
	step := ScenarioStep{Preset: "structural", Params: map[string]float64{"nope": 1}}
	if _, err := step.Build(); err == nil {
		t.Error("expected error for unknown parameter")
	}
	step = ScenarioStep{Preset: "missing"}
	if _, err := step.Build(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("structural")
	base.Duration = 0.2

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "mass",
		ParamMin:  0.5,
		ParamMax:  1.5,
		NumSteps:  3,
		Workers:   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []float64{0.5, 1.0, 1.5}
	for i, r := range results {
		if r.ParamValue != want[i] {
			t.Errorf("result %d: param %v, want %v", i, r.ParamValue, want[i])
		}
		if !r.Stable {
			t.Errorf("result %d unstable", i)
		}
		if r.MaxEnergy < r.MinEnergy {
			t.Errorf("result %d: energy range inverted", i)
		}
	}
	if base.Mass != config.GetPreset("structural").Mass {
		t.Error("sweep mutated the base config")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.GetPreset("structural")
	base.Duration = 0.1

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:         base,
		ParamName:    "damping",
		BaseValue:    -0.0125,
		Perturbation: 0.005,
		NumTrials:    4,
		Seed:         7,
	})
	if err != nil {
		t.Fatal(err)
	}
	stable, unstable := MonteCarloStats(results)
	if stable != 4 || unstable != 0 {
		t.Errorf("expected 4 stable trials, got %d/%d", stable, unstable)
	}
	for _, r := range results {
		if r.ParamValue < -0.0175 || r.ParamValue > -0.0075 {
			t.Errorf("trial %d: perturbed value %v out of range", r.TrialID, r.ParamValue)
		}
	}
}
