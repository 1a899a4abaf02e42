package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/e2ekit/pkg/metrics"
)

// Scenario is one executable test case.
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	Run         func(*Scope) error
}

// HasAnyTag reports whether the scenario carries one of tags. An empty tag
// list matches every scenario.
func (s Scenario) HasAnyTag(tags ...string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range s.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// FilterByTags keeps the scenarios carrying any of tags.
func FilterByTags(scenarios []Scenario, tags ...string) []Scenario {
	var kept []Scenario
	for _, s := range scenarios {
		if s.HasAnyTag(tags...) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Runner executes scenarios through the orchestrator hooks.
type Runner struct {
	o       *Orchestrator
	workers int
}

// NewRunner creates a runner using the configured worker count.
func NewRunner(o *Orchestrator) *Runner {
	workers := o.rc.Config.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{o: o, workers: workers}
}

// Run executes every scenario and ends the run. With more than one worker
// scenarios run on a pool where each worker has its own driver chain.
// Cancelling ctx stops scheduling; scenarios already running finish. The
// returned error is the context error, if any.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (metrics.Summary, error) {
	if err := r.o.OnRunStart(); err != nil {
		return r.o.OnRunEnd(), err
	}

	if r.workers == 1 {
		r.runSequential(ctx, scenarios)
	} else {
		r.runPool(ctx, scenarios)
	}

	summary := r.o.OnRunEnd()
	return summary, ctx.Err()
}

func (r *Runner) runSequential(ctx context.Context, scenarios []Scenario) {
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			r.o.rc.Log.Warnf("Run cancelled, %s not started", sc.Name)
			return
		}
		r.runOne(metrics.DefaultWorker, sc)
	}
}

func (r *Runner) runPool(ctx context.Context, scenarios []Scenario) {
	jobs := make(chan Scenario)
	g, gctx := errgroup.WithContext(ctx)

	for i := 1; i <= r.workers; i++ {
		worker := fmt.Sprintf("worker-%d", i)
		g.Go(func() error {
			defer func() {
				if err := r.o.disposeWorker(worker); err != nil {
					r.o.rc.Log.Warnf("Error disposing %s session: %v", worker, err)
				}
			}()
			for sc := range jobs {
				r.runOne(worker, sc)
			}
			return nil // scenario failures are recorded, not propagated
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, sc := range scenarios {
			select {
			case <-gctx.Done():
				r.o.rc.Log.Warnf("Run cancelled, %s not started", sc.Name)
				return nil
			case jobs <- sc:
			}
		}
		return nil
	})

	_ = g.Wait()
}

// runOne drives the hooks for one scenario, turning a panic in the body into
// a failure.
func (r *Runner) runOne(worker string, sc Scenario) {
	scope, err := r.o.startScenario(worker, sc.Name, sc.Description)
	if err != nil {
		r.o.endScenario(worker, sc.Name, err)
		return
	}
	r.o.endScenario(worker, sc.Name, runBody(sc, scope))
}

func runBody(sc Scenario, scope *Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario panicked: %v", r)
		}
	}()
	if sc.Run == nil {
		return Skip("scenario has no steps")
	}
	return sc.Run(scope)
}
