package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an ensemble. Build is called on the worker
// goroutine so every run owns its cloth.
type Job struct {
	Name   string
	Build  func() (*Simulator, error)
	Config Config
}

// Ensemble runs independent simulations concurrently.
type Ensemble struct {
	workers int
}

// NewEnsemble limits concurrency to workers; workers <= 0 means unbounded.
func NewEnsemble(workers int) *Ensemble {
	return &Ensemble{workers: workers}
}

// Run executes every job and returns results in job order. The first
// failure cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			s, err := job.Build()
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, job.Config)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
