package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/e2ekit/pkg/browser"
)

// Stage names
const (
	StageManaged   = "managed"
	StageDiscovery = "discovery"
	StageNative    = "native"
)

var (
	// ErrAcquisitionFailed is matched by every *AcquisitionError.
	ErrAcquisitionFailed = errors.New("driver acquisition failed")

	// ErrChainDisposed is returned by Acquire after Dispose.
	ErrChainDisposed = errors.New("driver chain is disposed")
)

// StageFunc constructs a session for engine with the resolved options.
type StageFunc func(engine browser.Engine, opts browser.LaunchOptions) (browser.Session, error)

// LocateFunc resolves an explicit browser binary for engine.
type LocateFunc func(engine browser.Engine) (string, error)

// Stage is one named acquisition strategy. When Locate is set the located
// binary is passed to Run as LaunchOptions.ExecutablePath.
type Stage struct {
	Name   string
	Locate LocateFunc
	Run    StageFunc
}

// StageResult is the outcome of one stage: either a Session or an Err.
type StageResult struct {
	Stage      string
	Session    browser.Session
	BinaryPath string
	Err        error
}

// OK reports whether the stage produced a session.
func (r StageResult) OK() bool {
	return r.Err == nil && r.Session != nil
}

// run executes the stage, converting a panic in the stage into an error.
func (s Stage) run(engine browser.Engine, opts browser.LaunchOptions) (result StageResult) {
	result.Stage = s.Name
	defer func() {
		if r := recover(); r != nil {
			result.Session = nil
			result.Err = fmt.Errorf("panic in %s stage: %v", s.Name, r)
		}
	}()

	if s.Locate != nil {
		path, err := s.Locate(engine)
		if err != nil {
			result.Err = err
			return result
		}
		opts.ExecutablePath = path
		result.BinaryPath = path
	}

	result.Session, result.Err = s.Run(engine, opts)
	if result.Err == nil && result.Session == nil {
		result.Err = errors.New("stage returned no session")
	}
	return result
}

// AcquisitionError reports that every stage of the chain failed.
type AcquisitionError struct {
	Engine   browser.Engine
	Failures []StageResult
}

func (e *AcquisitionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Stage, f.Err))
	}
	return fmt.Sprintf("driver acquisition failed for %s: %s", e.Engine, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrAcquisitionFailed) hold.
func (e *AcquisitionError) Is(target error) bool {
	return target == ErrAcquisitionFailed
}

// Unwrap returns the error of the last stage attempted.
func (e *AcquisitionError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}

// Errors returns every stage error in attempt order.
func (e *AcquisitionError) Errors() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
