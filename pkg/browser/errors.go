package browser

import (
	"errors"
	"fmt"
	"time"
)

// ErrElementWaitTimeout is matched by every bounded-wait timeout error.
var ErrElementWaitTimeout = errors.New("element wait timed out")

// UnsupportedEngineError is returned for an engine name or value that is not
// recognized.
type UnsupportedEngineError struct {
	Name string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported browser engine %q", e.Name)
}

// PlatformMismatchError is returned when an engine is requested on a host
// that cannot run it.
type PlatformMismatchError struct {
	Engine   Engine
	Platform string
	Required string
}

func (e *PlatformMismatchError) Error() string {
	return fmt.Sprintf("browser engine %s is only supported on %s (host: %s)", e.Engine, e.Required, e.Platform)
}

// WaitTimeoutError reports a bounded wait that expired.
type WaitTimeoutError struct {
	Locator   string
	Condition string
	Timeout   time.Duration
	Err       error
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %q to be %s", e.Timeout, e.Locator, e.Condition)
}

// Is makes errors.Is(err, ErrElementWaitTimeout) hold.
func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrElementWaitTimeout
}

func (e *WaitTimeoutError) Unwrap() error {
	return e.Err
}
