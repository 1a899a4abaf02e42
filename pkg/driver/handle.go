package driver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/e2ekit/pkg/browser"
)

// Handle is the live browser session owned by a Chain.
type Handle struct {
	// Engine the session was created for
	Engine browser.Engine

	// Session is the underlying automation session
	Session browser.Session

	// Stage is the name of the acquisition stage that produced the session
	Stage string

	// BinaryPath is the explicit browser binary, set by the discovery stage
	BinaryPath string

	// CreatedAt is the timestamp when the session was acquired
	CreatedAt time.Time

	live      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newHandle(engine browser.Engine, result StageResult, now time.Time) *Handle {
	h := &Handle{
		Engine:     engine,
		Session:    result.Session,
		Stage:      result.Stage,
		BinaryPath: result.BinaryPath,
		CreatedAt:  now,
	}
	h.live.Store(true)
	return h
}

// Live reports whether the session has not been quit yet.
func (h *Handle) Live() bool {
	return h.live.Load()
}

// close quits the session once; later calls return the first result.
func (h *Handle) close() error {
	h.closeOnce.Do(func() {
		h.live.Store(false)
		defer func() {
			if r := recover(); r != nil {
				h.closeErr = fmt.Errorf("panic while quitting session: %v", r)
			}
		}()
		h.closeErr = h.Session.Quit()
	})
	return h.closeErr
}
