package report

import (
	"time"
)

// LogLine is one status message of an entry.
type LogLine struct {
	Time    time.Time
	Status  Status
	Message string
}

// Entry is the report section of one scenario.
type Entry struct {
	Name        string
	Description string
	Started     time.Time
	Status      Status
	Logs        []LogLine
	Screenshots []string

	r *Reporter
}

// Info logs an informational message to the entry.
func (e *Entry) Info(message string) { e.log(StatusInfo, message) }

// Pass logs a passed step.
func (e *Entry) Pass(message string) { e.log(StatusPass, message) }

// Fail logs a failure.
func (e *Entry) Fail(message string) { e.log(StatusFail, message) }

// Warning logs a warning.
func (e *Entry) Warning(message string) { e.log(StatusWarning, message) }

// Skip logs that the scenario was skipped.
func (e *Entry) Skip(message string) { e.log(StatusSkip, message) }

// Attach adds a screenshot to the entry. Missing files are ignored.
func (e *Entry) Attach(path string) {
	e.r.attach(e, path)
}

func (e *Entry) log(status Status, message string) {
	e.r.append(e, status, message)
}

// snapshot copies the entry without sharing slices with it.
func (e *Entry) snapshot() Entry {
	c := *e
	c.Logs = append([]LogLine(nil), e.Logs...)
	c.Screenshots = append([]string(nil), e.Screenshots...)
	c.r = nil
	return c
}
