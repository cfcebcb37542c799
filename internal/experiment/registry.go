package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/clothsim/internal/control"
	"github.com/san-kum/clothsim/internal/metrics"
	"github.com/san-kum/clothsim/internal/sim"
)

// DefaultSpeedLimit is the node speed above which a tick counts as unstable.
const DefaultSpeedLimit = 100.0

type Registry struct {
	metrics map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() sim.Metric),
	}

	r.metrics["energy"] = func() sim.Metric { return metrics.NewEnergy() }
	r.metrics["energy_ratio"] = func() sim.Metric { return metrics.NewEnergyRatio() }
	r.metrics["energy_drift"] = func() sim.Metric { return metrics.NewEnergyDrift() }
	r.metrics["max_stretch"] = func() sim.Metric { return metrics.NewMaxStretch() }
	r.metrics["sag"] = func() sim.Metric { return metrics.NewSag() }
	r.metrics["stability"] = func() sim.Metric { return metrics.NewStability(DefaultSpeedLimit) }
	r.metrics["device_force"] = func() sim.Metric { return metrics.NewDeviceForce() }

	return r
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetDriver(p control.Path) (control.Driver, error) {
	return control.NewDriver(p)
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListDrivers() []string {
	return control.DriverNames()
}

// DefaultMetrics is used when a scene names none.
func (r *Registry) DefaultMetrics() []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(),
		metrics.NewMaxStretch(),
		metrics.NewSag(),
		metrics.NewStability(DefaultSpeedLimit),
	}
}
