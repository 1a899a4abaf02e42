package metrics

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one scenario execution.
type Result int

const (
	Pass Result = iota
	Fail
	Skip
)

func (r Result) String() string {
	switch r {
	case Pass:
		return "Pass"
	case Fail:
		return "Fail"
	case Skip:
		return "Skip"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ParseResult accepts the names produced by String, case-insensitively.
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "passed":
		return Pass, nil
	case "fail", "failed":
		return Fail, nil
	case "skip", "skipped":
		return Skip, nil
	default:
		return 0, fmt.Errorf("unknown test result %q", s)
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Record is the outcome of one scenario execution.
type Record struct {
	TestName     string
	Result       Result
	Duration     time.Duration
	Timestamp    time.Time
	ErrorMessage string
	ArtifactPath string
}

// Sample is a named performance measurement.
type Sample struct {
	Name      string
	Value     float64
	Unit      string
	Timestamp time.Time
}

// Summary aggregates all records of a run.
type Summary struct {
	TotalTests      int
	PassedTests     int
	FailedTests     int
	SkippedTests    int
	TotalDuration   time.Duration
	AverageDuration time.Duration
	ExecutionDate   time.Time
	PassRate        float64
}

// String renders the one-line summary written at the end of a run.
func (s Summary) String() string {
	return fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d, Pass Rate: %.2f%%, Duration: %s",
		s.TotalTests, s.PassedTests, s.FailedTests, s.SkippedTests, s.PassRate, s.TotalDuration.Round(time.Millisecond))
}

// Summarize computes a Summary over records.
func Summarize(records []Record, executed time.Time) Summary {
	s := Summary{
		TotalTests:    len(records),
		ExecutionDate: executed,
	}
	for _, r := range records {
		switch r.Result {
		case Pass:
			s.PassedTests++
		case Fail:
			s.FailedTests++
		case Skip:
			s.SkippedTests++
		}
		s.TotalDuration += r.Duration
	}
	if s.TotalTests > 0 {
		s.AverageDuration = s.TotalDuration / time.Duration(s.TotalTests)
		s.PassRate = 100 * float64(s.PassedTests) / float64(s.TotalTests)
	}
	return s
}
