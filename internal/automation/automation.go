package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
	"github.com/san-kum/clothsim/internal/sim"
	"github.com/san-kum/clothsim/internal/storage"
)

// Scenario defines a scripted sequence of cloth runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Config, when set, is a scene
// file loaded instead of the preset.
type ScenarioStep struct {
	Preset   string             `yaml:"preset"`
	Config   string             `yaml:"config"`
	Duration float64            `yaml:"duration"`
	Dt       float64            `yaml:"dt"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

type StepResult struct {
	Step   int
	Scene  string
	RunID  string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// Build resolves the step into a validated scene config.
func (s ScenarioStep) Build() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	for k, v := range s.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. Steps with save_as are persisted
// to store when it is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, log io.Writer) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Build()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintf(log, "Running step %d/%d: %s\n", i+1, len(scenario.Steps), cfg.Name)

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Step: i + 1, Scene: cfg.Name, Result: result}
		if step.SaveAs != "" && store != nil {
			id, err := store.Save(exp.RunInfo(), result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs one scene across a range of values for a single
// dotted config parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Workers   int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	MaxEnergy  float64
	MinEnergy  float64
	Metrics    map[string]float64
	Stable     bool
}

func (s *ParameterSweep) values() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.ParamMin}
	}
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	vals := make([]float64, s.NumSteps)
	for i := range vals {
		vals[i] = s.ParamMin + float64(i)*step
	}
	return vals
}

// RunSweep executes the sweep on an ensemble; results are in parameter order.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.Base == nil {
		return nil, fmt.Errorf("sweep has no base config")
	}
	vals := sweep.values()
	jobs := make([]sim.Job, len(vals))
	for i, v := range vals {
		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.ParamName, v); err != nil {
			return nil, err
		}
		jobs[i] = experimentJob(fmt.Sprintf("%s=%g", sweep.ParamName, v), cfg)
	}

	runs, err := sim.NewEnsemble(sweep.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		minE, maxE := energyRange(r.Energy)
		results[i] = SweepResult{
			ParamValue: vals[i],
			MaxEnergy:  maxE,
			MinEnergy:  minE,
			Metrics:    r.Metrics,
			Stable:     len(r.Errors) == 0,
		}
	}
	return results, nil
}

func experimentJob(name string, cfg *config.Config) sim.Job {
	return sim.Job{
		Name: name,
		Build: func() (*sim.Simulator, error) {
			exp, err := experiment.New(cfg)
			if err != nil {
				return nil, err
			}
			return exp.GetSimulator(), nil
		},
		Config: cfg.SimConfig(),
	}
}

func energyRange(e []float64) (lo, hi float64) {
	if len(e) == 0 {
		return 0, 0
	}
	lo, hi = e[0], e[0]
	for _, v := range e {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// MonteCarloConfig perturbs one parameter uniformly around its base value.
type MonteCarloConfig struct {
	Base         *config.Config
	ParamName    string
	BaseValue    float64
	Perturbation float64
	NumTrials    int
	Workers      int
	Seed         int64
}

// MonteCarloResult holds the outcome of a single trial
type MonteCarloResult struct {
	TrialID    int
	ParamValue float64
	FinalSag   float64
	Stable     bool // no invalid state and no runaway positions
}

// RunMonteCarlo executes trials with random parameter perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Base == nil {
		return nil, fmt.Errorf("monte carlo has no base config")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	vals := make([]float64, cfg.NumTrials)
	jobs := make([]sim.Job, cfg.NumTrials)
	for trial := range jobs {
		vals[trial] = cfg.BaseValue + (rng.Float64()-0.5)*2*cfg.Perturbation
		c := cfg.Base.Clone()
		if err := c.SetParam(cfg.ParamName, vals[trial]); err != nil {
			return nil, err
		}
		jobs[trial] = experimentJob(fmt.Sprintf("trial-%d", trial), c)
	}

	runs, err := sim.NewEnsemble(cfg.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for trial, r := range runs {
		stable := len(r.Errors) == 0
		if n := len(r.Frames); n > 0 {
			for _, p := range r.Frames[n-1].Positions {
				if math.Abs(p[0]) > 1e6 || math.Abs(p[1]) > 1e6 || math.Abs(p[2]) > 1e6 {
					stable = false
					break
				}
			}
		}
		results[trial] = MonteCarloResult{
			TrialID:    trial,
			ParamValue: vals[trial],
			FinalSag:   r.Metrics["sag"],
			Stable:     stable,
		}
	}
	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
