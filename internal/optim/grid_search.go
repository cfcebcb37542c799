package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
)

// GridSearch tries every combination of the given parameter values on a
// base scene and keeps the one with the lowest metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Trial is one evaluated parameter combination.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs the grid. Combinations that fail to build or diverge are
// recorded in the returned trials and never chosen as best.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	metricName string,
) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &best, &bestParams, &trials)
	if err != nil {
		return nil, 0, trials, err
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("no combination produced metric %q", metricName)
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		val, err := evaluate(ctx, base, current, metricName)
		*trials = append(*trials, Trial{Params: current, Value: val, Err: err})
		if err != nil {
			return nil
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, metricName, best, bestParams, trials); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) (float64, error) {
	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.SetParam(k, v); err != nil {
			return 0, err
		}
	}
	if !contains(cfg.Metrics, metricName) {
		cfg.Metrics = append(cfg.Metrics, metricName)
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		return 0, result.Errors[0]
	}
	val, ok := result.Metrics[metricName]
	if !ok || math.IsNaN(val) {
		return 0, fmt.Errorf("metric %q not available", metricName)
	}
	return val, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
