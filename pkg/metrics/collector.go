package metrics

import (
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/logging"
)

// DefaultWorker keys the stopwatch of sequential runs.
const DefaultWorker = ""

// DefaultUnit is applied to samples recorded without a unit.
const DefaultUnit = "ms"

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the time source for stopwatches and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithLogger sets the collector logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Collector) {
		if log != nil {
			c.log = log
		}
	}
}

type stopwatch struct {
	name    string
	started time.Time
}

// Collector times scenarios and accumulates their outcome records. It is
// safe for concurrent use; each worker owns its own stopwatch.
type Collector struct {
	now  func() time.Time
	log  *logging.Logger
	prom *promMetrics

	mu      sync.Mutex
	running map[string]stopwatch
	records []Record
	samples []Sample
}

// NewCollector creates an empty collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:     time.Now,
		log:     logging.Nop(),
		running: make(map[string]stopwatch),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prom = newPromMetrics()
	return c
}

// StartTest starts the shared stopwatch for name.
func (c *Collector) StartTest(name string) {
	c.StartTestOn(DefaultWorker, name)
}

// EndTest stops the shared stopwatch and appends the outcome record.
func (c *Collector) EndTest(name string, result Result, errMsg string) Record {
	return c.EndTestOn(DefaultWorker, name, result, errMsg, "")
}

// StartTestOn starts worker's stopwatch, restarting it if already running.
func (c *Collector) StartTestOn(worker, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sw, ok := c.running[worker]; ok {
		c.log.Debugf("Restarting stopwatch of %q for %q", sw.name, name)
	}
	c.running[worker] = stopwatch{name: name, started: c.now()}
	c.log.Debugf("Started test: %s", name)
}

// EndTestOn stops worker's stopwatch and appends the outcome record. Without
// a running stopwatch the duration is zero; a clock that went backwards
// also yields zero.
func (c *Collector) EndTestOn(worker, name string, result Result, errMsg, artifact string) Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.now()
	var duration time.Duration
	if sw, ok := c.running[worker]; ok {
		duration = end.Sub(sw.started)
		delete(c.running, worker)
	}
	if duration < 0 {
		duration = 0
	}

	record := Record{
		TestName:     name,
		Result:       result,
		Duration:     duration,
		Timestamp:    end,
		ErrorMessage: errMsg,
		ArtifactPath: artifact,
	}
	c.records = append(c.records, record)
	c.prom.observe(record)

	c.log.Infof("Test %s completed: %s in %dms", name, result, duration.Milliseconds())
	return record
}

// RecordSample stores a performance measurement.
func (c *Collector) RecordSample(name string, value float64, unit string) Sample {
	if unit == "" {
		unit = DefaultUnit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sample := Sample{Name: name, Value: value, Unit: unit, Timestamp: c.now()}
	c.samples = append(c.samples, sample)
	c.log.Debugf("Recorded sample %s: %g%s", name, value, unit)
	return sample
}

// Records returns a copy of the outcome records in completion order.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Samples returns a copy of the performance samples.
func (c *Collector) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.samples...)
}

// Running reports whether worker's stopwatch is running.
func (c *Collector) Running(worker string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[worker]
	return ok
}

// GenerateSummary aggregates the records collected so far.
func (c *Collector) GenerateSummary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summarize(c.records, c.now())
}
