package orchestrator

import (
	"os"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/config"
	"github.com/entrhq/e2ekit/pkg/driver"
	"github.com/entrhq/e2ekit/pkg/logging"
	"github.com/entrhq/e2ekit/pkg/metrics"
	"github.com/entrhq/e2ekit/pkg/report"
)

// ChainFactory creates the driver chain of a worker. The sequential run uses
// the worker id metrics.DefaultWorker.
type ChainFactory func(worker string) *driver.Chain

// RunContext holds the services shared by every scenario of a run.
type RunContext struct {
	Config   *config.Config
	Metrics  *metrics.Collector
	Reporter *report.Reporter
	Chain    *driver.Chain
	Log      *logging.Logger

	newChain ChainFactory
	now      func() time.Time
	ownsLog  bool
	initOnce sync.Once
}

// RunOption configures a RunContext.
type RunOption func(*RunContext)

// WithLogger sets the run logger. The caller keeps ownership of it.
func WithLogger(log *logging.Logger) RunOption {
	return func(rc *RunContext) {
		rc.Log = log
	}
}

// WithChainFactory replaces how driver chains are created.
func WithChainFactory(f ChainFactory) RunOption {
	return func(rc *RunContext) {
		rc.newChain = f
	}
}

// WithMetrics sets a pre-built metrics collector.
func WithMetrics(m *metrics.Collector) RunOption {
	return func(rc *RunContext) {
		rc.Metrics = m
	}
}

// WithReporter sets a pre-built reporter.
func WithReporter(r *report.Reporter) RunOption {
	return func(rc *RunContext) {
		rc.Reporter = r
	}
}

// WithRunClock sets the time source of the run services.
func WithRunClock(now func() time.Time) RunOption {
	return func(rc *RunContext) {
		rc.now = now
	}
}

// NewRunContext validates cfg and prepares the run logger and the default
// driver chain. A nil cfg uses config.DefaultConfig. Metrics and reporter are
// created on OnRunStart unless supplied.
func NewRunContext(cfg *config.Config, opts ...RunOption) (*RunContext, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &RunContext{
		Config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rc)
	}

	if rc.Log == nil {
		logging.Configure(cfg.LogDir, logging.ParseLevel(cfg.LogLevel), os.Stderr)
		// NewLogger falls back to stderr on error, the run continues
		rc.Log, _ = logging.NewLogger("e2ekit")
		rc.ownsLog = true
	}
	if rc.newChain == nil {
		rc.newChain = DefaultChainFactory(cfg, rc.Log)
	}
	if rc.Chain == nil {
		rc.Chain = rc.newChain(metrics.DefaultWorker)
	}
	return rc, nil
}

// DriverConfig maps run settings onto the driver chain configuration.
func DriverConfig(cfg *config.Config) driver.Config {
	return driver.Config{
		Headless:    cfg.Headless,
		Timeout:     cfg.Timeout(),
		ExtraArgs:   cfg.EngineExtraArguments,
		Preferences: cfg.EnginePreferences,
		DriversDir:  cfg.DriversDir,
		CacheDirs:   driver.DefaultCacheDirs(),
	}
}

// DefaultChainFactory builds chains with the playwright and go-rod stages.
func DefaultChainFactory(cfg *config.Config, log *logging.Logger) ChainFactory {
	return func(worker string) *driver.Chain {
		component := "driver"
		if worker != metrics.DefaultWorker {
			component = "driver/" + worker
		}
		return driver.NewChain(DriverConfig(cfg), driver.WithLogger(log.Named(component)))
	}
}

// init creates the metrics collector and reporter once.
func (rc *RunContext) init() {
	rc.initOnce.Do(func() {
		if rc.Metrics == nil {
			rc.Metrics = metrics.NewCollector(
				metrics.WithClock(rc.now),
				metrics.WithLogger(rc.Log.Named("metrics")),
			)
		}
		if rc.Reporter == nil {
			rc.Reporter = report.NewReporter(report.Config{
				ReportsDir:      rc.Config.ReportsDir,
				ApplicationName: rc.Config.ApplicationName,
				Environment:     rc.Config.Environment,
				Browser:         rc.Config.Browser,
			}, report.WithLogger(rc.Log.Named("report")), report.WithClock(rc.now))
		}
	})
}
