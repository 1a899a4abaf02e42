package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/driver"
	"github.com/entrhq/e2ekit/pkg/metrics"
	"github.com/entrhq/e2ekit/pkg/report"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScopeFactory replaces NewScope.
func WithScopeFactory(f ScopeFactory) Option {
	return func(o *Orchestrator) {
		o.newScope = f
	}
}

// WithClock sets the time source used for artifact file names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator implements the run and scenario lifecycle hooks.
type Orchestrator struct {
	rc       *RunContext
	newScope ScopeFactory
	now      func() time.Time

	mu      sync.Mutex
	active  map[string]*Scope
	workers map[string]*driver.Chain

	endOnce sync.Once
	summary metrics.Summary
}

// New creates an orchestrator over rc.
func New(rc *RunContext, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rc:       rc,
		newScope: NewScope,
		now:      time.Now,
		active:   make(map[string]*Scope),
		workers:  make(map[string]*driver.Chain),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunContext returns the shared run services.
func (o *Orchestrator) RunContext() *RunContext {
	return o.rc
}

// OnRunStart initializes the run services and output directories.
func (o *Orchestrator) OnRunStart() error {
	o.rc.init()

	cfg := o.rc.Config
	for _, dir := range []string{cfg.ReportsDir, cfg.ScreenshotsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	o.rc.Log.Infof("Test run started (browser: %s, headless: %t, workers: %d)", cfg.Browser, cfg.Headless, cfg.Workers)
	return nil
}

// OnScenarioStart opens a scope for the scenario on the sequential worker.
func (o *Orchestrator) OnScenarioStart(name, description string) (*Scope, error) {
	return o.startScenario(metrics.DefaultWorker, name, description)
}

// OnScenarioEnd classifies the outcome of the current scenario, records it
// and tears the scope down. A nil error is a pass, ErrSkipped a skip and
// any other error a failure.
func (o *Orchestrator) OnScenarioEnd(name string, scenarioErr error) metrics.Record {
	return o.endScenario(metrics.DefaultWorker, name, scenarioErr)
}

// chainFor returns the chain a new scope on worker binds to, and whether the
// scope owns it.
func (o *Orchestrator) chainFor(worker string) (*driver.Chain, bool) {
	if o.rc.Config.IsolateSessions {
		return o.rc.newChain(worker), true
	}
	if worker == metrics.DefaultWorker {
		return o.rc.Chain, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	chain, ok := o.workers[worker]
	if !ok {
		chain = o.rc.newChain(worker)
		o.workers[worker] = chain
	}
	return chain, false
}

func (o *Orchestrator) startScenario(worker, name, description string) (*Scope, error) {
	o.rc.init()

	o.mu.Lock()
	stale := o.active[worker]
	o.mu.Unlock()
	if stale != nil {
		o.rc.Log.Warnf("Scenario %s did not end before %s started", stale.Name, name)
		o.endScenario(worker, stale.Name, errScenarioNotEnded)
	}

	chain, owns := o.chainFor(worker)
	scope, err := o.newScope(ScopeParams{
		Name:        name,
		Description: description,
		Worker:      worker,
		Config:      o.rc.Config,
		Chain:       chain,
		OwnsChain:   owns,
		Log:         o.rc.Log.Named("scenario"),
	})
	if err != nil {
		if owns {
			_ = chain.Dispose()
		}
		return nil, fmt.Errorf("failed to create scope for %s: %w", name, err)
	}
	if err := scope.transition(ScopeActive); err != nil {
		o.teardown(scope)
		return nil, err
	}

	scope.Entry = o.rc.Reporter.CreateTest(name, description)
	scope.StartedAt = o.now()
	o.rc.Metrics.StartTestOn(worker, name)

	o.mu.Lock()
	o.active[worker] = scope
	o.mu.Unlock()

	o.rc.Log.Infof("Starting scenario: %s", name)
	return scope, nil
}

// classify maps a scenario error to its result and message.
func classify(err error) (metrics.Result, string) {
	switch {
	case err == nil:
		return metrics.Pass, ""
	case errors.Is(err, ErrSkipped):
		return metrics.Skip, err.Error()
	default:
		return metrics.Fail, err.Error()
	}
}

func (o *Orchestrator) endScenario(worker, name string, scenarioErr error) metrics.Record {
	o.rc.init()

	o.mu.Lock()
	scope := o.active[worker]
	delete(o.active, worker)
	o.mu.Unlock()

	if scope != nil {
		defer o.teardown(scope)
		if scope.Name != name {
			o.rc.Log.Warnf("Scenario end for %s while %s is active; recording %s", name, scope.Name, scope.Name)
			name = scope.Name
		}
	}

	result, message := classify(scenarioErr)

	var entry *report.Entry
	if scope != nil && scope.Entry != nil {
		entry = scope.Entry
	} else {
		entry = o.rc.Reporter.CreateTest(name, "")
	}

	state := ScopePassed
	switch result {
	case metrics.Pass:
		entry.Pass("Test passed")
	case metrics.Skip:
		state = ScopeSkipped
		entry.Skip("Test skipped: " + message)
	default:
		state = ScopeFailed
		entry.Fail("Test failed: " + message)
	}
	if scope != nil {
		if err := scope.transition(state); err != nil {
			o.rc.Log.Warnf("Scenario %s: %v", name, err)
		}
	}

	var artifact string
	if result == metrics.Fail && o.rc.Config.ScreenshotOnFailure {
		path, err := o.captureScreenshot(scope, name)
		switch {
		case err != nil:
			o.rc.Log.Warnf("%v", err)
		case path != "":
			artifact = path
			entry.Attach(path)
		}
	}

	record := o.rc.Metrics.EndTestOn(worker, name, result, message, artifact)
	o.rc.Log.Infof("Scenario %s finished: %s", name, result)
	return record
}

// teardown disposes scope, logging failures and recovering panics.
func (o *Orchestrator) teardown(scope *Scope) {
	defer func() {
		if r := recover(); r != nil {
			o.rc.Log.Warnf("%v", &TeardownError{Scenario: scope.Name, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if err := scope.Dispose(); err != nil {
		o.rc.Log.Warnf("%v", &TeardownError{Scenario: scope.Name, Err: err})
	}
}

// ActiveScopes returns the names of scenarios started but not ended.
func (o *Orchestrator) ActiveScopes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.active))
	for _, s := range o.active {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// OnRunEnd ends unfinished scenarios, flushes the report, exports metrics,
// disposes the driver chains and returns the run summary. Every step runs
// even if an earlier one fails. Later calls return the same summary.
func (o *Orchestrator) OnRunEnd() metrics.Summary {
	o.endOnce.Do(func() {
		o.rc.init()
		log := o.rc.Log
		cfg := o.rc.Config
		stamp := o.now().Format("20060102_150405")

		o.step("end unfinished scenarios", func() error {
			o.mu.Lock()
			workers := make([]string, 0, len(o.active))
			for w := range o.active {
				workers = append(workers, w)
			}
			o.mu.Unlock()
			sort.Strings(workers)

			for _, w := range workers {
				o.mu.Lock()
				scope := o.active[w]
				o.mu.Unlock()
				if scope != nil {
					o.endScenario(w, scope.Name, errRunEnded)
				}
			}
			return nil
		})

		o.step("flush reports", o.rc.Reporter.FlushReports)

		o.step("export metrics", func() error {
			return o.rc.Metrics.ExportMetrics(filepath.Join(cfg.ReportsDir, "TestMetrics_"+stamp+".json"))
		})

		if cfg.PrometheusFile != "" {
			o.step("write prometheus metrics", func() error {
				return o.rc.Metrics.WritePrometheus(cfg.PrometheusFile)
			})
		}

		o.step("summarize", func() error {
			o.summary = o.rc.Metrics.GenerateSummary()
			log.Infof("Test run completed. %s", o.summary)
			return nil
		})

		o.step("dispose worker sessions", o.disposeWorkers)
		o.step("dispose session", o.rc.Chain.Dispose)

		if o.rc.ownsLog {
			o.step("close log", log.Close)
		}
	})
	return o.summary
}

// step runs one OnRunEnd action in isolation.
func (o *Orchestrator) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			o.rc.Log.Errorf("Run end step %q panicked: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		o.rc.Log.Errorf("Run end step %q failed: %v", name, err)
	}
}

// disposeWorker disposes the chain of one worker.
func (o *Orchestrator) disposeWorker(worker string) error {
	o.mu.Lock()
	chain := o.workers[worker]
	delete(o.workers, worker)
	o.mu.Unlock()

	if chain == nil {
		return nil
	}
	return chain.Dispose()
}

func (o *Orchestrator) disposeWorkers() error {
	o.mu.Lock()
	workers := make([]string, 0, len(o.workers))
	for w := range o.workers {
		workers = append(workers, w)
	}
	o.mu.Unlock()

	var errs []error
	for _, w := range workers {
		if err := o.disposeWorker(w); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w, err))
		}
	}
	return errors.Join(errs...)
}
