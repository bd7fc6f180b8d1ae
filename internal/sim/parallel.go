package sim

import (
	"context"

	"github.com/san-kum/heatbmi/internal/bmi"
	"golang.org/x/sync/errgroup"
)

// Factory returns an initialized model seeded with seed.
type Factory func(seed int64) (bmi.Model, error)

// Ensemble runs independent models, one per seed, concurrently. Members
// share nothing; each owns its model.
type Ensemble struct {
	factory   Factory
	metrics   func() []Metric
	numRuns   int
	seedStart int64
	limit     int
}

func NewEnsemble(factory Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

// WithMetrics sets the constructor for the metrics of each member. Every run
// gets its own set.
func (e *Ensemble) WithMetrics(fn func() []Metric) *Ensemble {
	e.metrics = fn
	return e
}

// WithConcurrency caps the number of members running at once. Zero or less
// means no cap.
func (e *Ensemble) WithConcurrency(n int) *Ensemble {
	e.limit = n
	return e
}

// Run runs every member to cfg.Until and finalizes it. Results are ordered by
// seed. The first failure, a failed Finalize included, cancels the remaining
// runs.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() (err error) {
			model, err := e.factory(e.seedStart + int64(i))
			if err != nil {
				return err
			}
			defer func() {
				if ferr := model.Finalize(); err == nil {
					err = ferr
				}
			}()

			sim := New(model)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}

			results[i], err = sim.Run(ctx, cfg)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
