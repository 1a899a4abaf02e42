package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/browser"
	"github.com/entrhq/e2ekit/pkg/config"
	"github.com/entrhq/e2ekit/pkg/driver"
	"github.com/entrhq/e2ekit/pkg/logging"
	"github.com/entrhq/e2ekit/pkg/report"
	"github.com/entrhq/e2ekit/pkg/testdata"
)

// ScopeState is the lifecycle state of a Scope.
type ScopeState int

const (
	ScopeIdle ScopeState = iota
	ScopeActive
	ScopePassed
	ScopeFailed
	ScopeSkipped
	ScopeTornDown
)

func (s ScopeState) String() string {
	switch s {
	case ScopeIdle:
		return "Idle"
	case ScopeActive:
		return "Active"
	case ScopePassed:
		return "Passed"
	case ScopeFailed:
		return "Failed"
	case ScopeSkipped:
		return "Skipped"
	case ScopeTornDown:
		return "TornDown"
	default:
		return fmt.Sprintf("ScopeState(%d)", int(s))
	}
}

var transitions = map[ScopeState][]ScopeState{
	ScopeIdle:    {ScopeActive, ScopeTornDown},
	ScopeActive:  {ScopePassed, ScopeFailed, ScopeSkipped},
	ScopePassed:  {ScopeTornDown},
	ScopeFailed:  {ScopeTornDown},
	ScopeSkipped: {ScopeTornDown},
}

func canTransition(from, to ScopeState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ScopeParams is the input of a ScopeFactory.
type ScopeParams struct {
	Name        string
	Description string
	Worker      string
	Config      *config.Config
	Chain       *driver.Chain

	// OwnsChain makes the scope dispose Chain on teardown
	OwnsChain bool

	Log *logging.Logger
}

// ScopeFactory builds the resources of one scenario.
type ScopeFactory func(p ScopeParams) (*Scope, error)

// Scope owns the resources of one scenario execution.
type Scope struct {
	Name        string
	Description string
	Worker      string
	Driver      *ScopedDriver
	Data        *testdata.Manager
	Log         *logging.Logger
	Entry       *report.Entry
	StartedAt   time.Time

	mu       sync.Mutex
	state    ScopeState
	disposed bool
}

// NewScope is the default ScopeFactory.
func NewScope(p ScopeParams) (*Scope, error) {
	if p.Chain == nil {
		return nil, errors.New("scope requires a driver chain")
	}
	log := p.Log
	if log == nil {
		log = logging.Nop()
	}

	s := &Scope{
		Name:        p.Name,
		Description: p.Description,
		Worker:      p.Worker,
		Driver:      NewScopedDriver(p.Chain, p.Config.Browser, p.OwnsChain),
		Log:         log,
	}
	s.Data = testdata.NewManager(p.Config.TestDataPath, testdata.WithLogger(log.Named("testdata")))
	return s, nil
}

// State returns the current lifecycle state.
func (s *Scope) State() ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scope) transition(to ScopeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, to) {
		return &StateError{From: s.state, To: to}
	}
	s.state = to
	return nil
}

// Session returns the scenario's browser session, acquiring it on first use.
func (s *Scope) Session() (browser.Session, error) {
	return s.Driver.Session()
}

// Dispose releases every owned resource and moves the scope to TornDown.
// A scope disposed while still Active is marked Failed first. Later calls
// return nil.
func (s *Scope) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	if s.state == ScopeActive {
		s.state = ScopeFailed
	}
	s.state = ScopeTornDown
	s.mu.Unlock()

	var errs []error
	if s.Driver != nil {
		if err := s.Driver.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose driver: %w", err))
		}
	}
	if s.Data != nil {
		s.Data.Dispose()
	}
	return errors.Join(errs...)
}

// Disposed reports whether Dispose has been called.
func (s *Scope) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// ScopedDriver binds a scope to a driver chain. The session is acquired on
// first use only.
type ScopedDriver struct {
	chain  *driver.Chain
	engine string
	owns   bool

	mu       sync.Mutex
	handle   *driver.Handle
	disposed bool
}

// NewScopedDriver binds chain for the named engine. When owns is set the
// chain is disposed together with the binding.
func NewScopedDriver(chain *driver.Chain, engine string, owns bool) *ScopedDriver {
	return &ScopedDriver{chain: chain, engine: engine, owns: owns}
}

// Session acquires the session through the chain on first call.
func (d *ScopedDriver) Session() (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil, driver.ErrChainDisposed
	}
	if d.handle == nil || !d.handle.Live() {
		h, err := d.chain.AcquireNamed(d.engine)
		if err != nil {
			return nil, err
		}
		d.handle = h
	}
	return d.handle.Session, nil
}

// Handle returns the acquired handle without acquiring one.
func (d *ScopedDriver) Handle() *driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle
}

// LiveHandle returns the bound handle when it is live, otherwise the chain's
// live handle from an earlier scope. It never acquires.
func (d *ScopedDriver) LiveHandle() *driver.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil
	}
	if d.handle != nil && d.handle.Live() {
		return d.handle
	}
	if h := d.chain.Current(); h != nil && h.Live() {
		return h
	}
	return nil
}

// Dispose drops the binding, disposing the chain when owned.
func (d *ScopedDriver) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil
	}
	d.disposed = true
	d.handle = nil
	if d.owns {
		return d.chain.Dispose()
	}
	return nil
}
