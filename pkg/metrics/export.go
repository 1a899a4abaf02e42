package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Export is the JSON document written by ExportMetrics.
type Export struct {
	Summary            ExportSummary  `json:"summary"`
	DetailedMetrics    []ExportRecord `json:"detailedMetrics"`
	PerformanceSamples []ExportSample `json:"performanceSamples"`
}

// ExportSummary is the serialized form of Summary.
type ExportSummary struct {
	TotalTests        int       `json:"totalTests"`
	PassedTests       int       `json:"passedTests"`
	FailedTests       int       `json:"failedTests"`
	SkippedTests      int       `json:"skippedTests"`
	TotalDurationMs   float64   `json:"totalDurationMs"`
	AverageDurationMs float64   `json:"averageDurationMs"`
	ExecutionDate     time.Time `json:"executionDate"`
	PassRate          float64   `json:"passRate"`
}

// ExportRecord is the serialized form of Record.
type ExportRecord struct {
	TestName     string    `json:"testName"`
	Result       Result    `json:"result"`
	DurationMs   float64   `json:"durationMs"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorMessage string    `json:"errorMessage"`
	ArtifactPath string    `json:"artifactPath"`
}

// ExportSample is the serialized form of Sample.
type ExportSample struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// NewExport builds the export document from a summary, records and samples.
func NewExport(s Summary, records []Record, samples []Sample) *Export {
	e := &Export{
		Summary: ExportSummary{
			TotalTests:        s.TotalTests,
			PassedTests:       s.PassedTests,
			FailedTests:       s.FailedTests,
			SkippedTests:      s.SkippedTests,
			TotalDurationMs:   millis(s.TotalDuration),
			AverageDurationMs: millis(s.AverageDuration),
			ExecutionDate:     s.ExecutionDate,
			PassRate:          s.PassRate,
		},
		DetailedMetrics:    make([]ExportRecord, 0, len(records)),
		PerformanceSamples: make([]ExportSample, 0, len(samples)),
	}
	for _, r := range records {
		e.DetailedMetrics = append(e.DetailedMetrics, ExportRecord{
			TestName:     r.TestName,
			Result:       r.Result,
			DurationMs:   millis(r.Duration),
			Timestamp:    r.Timestamp,
			ErrorMessage: r.ErrorMessage,
			ArtifactPath: r.ArtifactPath,
		})
	}
	for _, s := range samples {
		e.PerformanceSamples = append(e.PerformanceSamples, ExportSample(s))
	}
	return e
}

// Records converts the detailed metrics back to records.
func (e *Export) Records() []Record {
	records := make([]Record, 0, len(e.DetailedMetrics))
	for _, r := range e.DetailedMetrics {
		records = append(records, Record{
			TestName:     r.TestName,
			Result:       r.Result,
			Duration:     fromMillis(r.DurationMs),
			Timestamp:    r.Timestamp,
			ErrorMessage: r.ErrorMessage,
			ArtifactPath: r.ArtifactPath,
		})
	}
	return records
}

// ExportMetrics writes the summary, records and samples as JSON to path,
// creating its directory. Errors are logged and returned.
func (c *Collector) ExportMetrics(path string) error {
	export := c.snapshot()

	if err := writeJSON(path, export); err != nil {
		c.log.Errorf("Failed to export metrics: %v", err)
		return err
	}
	c.log.Infof("Metrics exported to: %s", path)
	return nil
}

// snapshot builds the export from one consistent view of the collector.
func (c *Collector) snapshot() *Export {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewExport(Summarize(c.records, c.now()), c.records, c.samples)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// ReadMetrics loads a file written by ExportMetrics.
func ReadMetrics(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return &export, nil
}
