package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipped marks a scenario outcome as skipped rather than failed.
	ErrSkipped = errors.New("scenario skipped")

	errScenarioNotEnded = errors.New("scenario did not end")
	errRunEnded         = errors.New("run ended before scenario finished")
)

// Skip returns an error that OnScenarioEnd classifies as a skip.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// ArtifactCaptureError reports a failed failure-screenshot capture.
type ArtifactCaptureError struct {
	Scenario string
	Path     string
	Err      error
}

func (e *ArtifactCaptureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to capture screenshot for %s at %s: %v", e.Scenario, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to capture screenshot for %s: %v", e.Scenario, e.Err)
}

func (e *ArtifactCaptureError) Unwrap() error {
	return e.Err
}

// TeardownError reports a failure while disposing a scenario scope.
type TeardownError struct {
	Scenario string
	Err      error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown of %s failed: %v", e.Scenario, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

// StateError reports an invalid scope state transition.
type StateError struct {
	From ScopeState
	To   ScopeState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid scope transition %s -> %s", e.From, e.To)
}
