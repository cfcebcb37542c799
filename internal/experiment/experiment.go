package experiment

import (
	"context"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/contact"
	"github.com/san-kum/clothsim/internal/sim"
	"github.com/san-kum/clothsim/internal/storage"
)

// Experiment is a configured scene ready to run: cloth, optional contact
// proxy and a simulator with the requested metrics attached.
type Experiment struct {
	cfg       *config.Config
	cloth     *cloth.Cloth
	proxy     *contact.Proxy
	simulator *sim.Simulator
}

func New(cfg *config.Config) (*Experiment, error) {
	return NewWithRegistry(cfg, NewRegistry())
}

func NewWithRegistry(cfg *config.Config, reg *Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	c, err := cloth.New(params)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, cloth: c}
	var source sim.ForceSource
	if cfg.Contact.Enabled {
		driver, err := reg.GetDriver(cfg.CursorPath())
		if err != nil {
			return nil, err
		}
		e.proxy = contact.New(cfg.ContactParams(), driver)
		source = e.proxy
	}

	e.simulator = sim.New(c, source)
	if len(cfg.Metrics) == 0 {
		for _, m := range reg.DefaultMetrics() {
			e.simulator.AddMetric(m)
		}
	}
	for _, name := range cfg.Metrics {
		m, err := reg.GetMetric(name)
		if err != nil {
			return nil, err
		}
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.cfg.SimConfig())
}

// Runner wraps the same cloth and proxy in a realtime runner.
func (e *Experiment) Runner() *sim.Runner {
	var source sim.ForceSource
	if e.proxy != nil {
		source = e.proxy
	}
	return sim.NewRunner(e.cloth, source, e.cfg.RunnerConfig())
}

func (e *Experiment) RunInfo() storage.RunInfo {
	return storage.RunInfo{
		Scene:    e.cfg.Name,
		Dt:       e.cfg.Dt,
		Duration: e.cfg.Duration,
		Pinning:  e.cfg.Pinning,
	}
}

func (e *Experiment) Cloth() *cloth.Cloth { return e.cloth }

// Proxy returns the contact proxy, or nil when contact is disabled.
func (e *Experiment) Proxy() *contact.Proxy { return e.proxy }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }
