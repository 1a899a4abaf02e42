package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics mirrors the records of one Collector into a private registry,
// so several collectors can live in one process.
type promMetrics struct {
	registry *prometheus.Registry
	tests    *prometheus.CounterVec
	duration prometheus.Histogram
	passRate prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &promMetrics{
		registry: reg,
		tests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "e2ekit",
			Name:      "tests_total",
			Help:      "Number of scenario executions by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "e2ekit",
			Name:      "test_duration_seconds",
			Help:      "Scenario execution time.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		passRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "e2ekit",
			Name:      "pass_rate",
			Help:      "Percentage of passed scenarios in the run.",
		}),
	}
}

func (p *promMetrics) observe(r Record) {
	p.tests.WithLabelValues(r.Result.String()).Inc()
	p.duration.Observe(r.Duration.Seconds())
}

// Registry exposes the collector's Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.prom.registry
}

// WritePrometheus writes the collector's metrics in the Prometheus text
// format to path, for the node exporter textfile collector.
func (c *Collector) WritePrometheus(path string) error {
	c.prom.passRate.Set(c.GenerateSummary().PassRate)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		err = fmt.Errorf("failed to create metrics directory: %w", err)
		c.log.Errorf("Failed to write Prometheus metrics: %v", err)
		return err
	}
	if err := prometheus.WriteToTextfile(path, c.prom.registry); err != nil {
		c.log.Errorf("Failed to write Prometheus metrics: %v", err)
		return fmt.Errorf("failed to write prometheus textfile: %w", err)
	}
	c.log.Infof("Prometheus metrics written to: %s", path)
	return nil
}
