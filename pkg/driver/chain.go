package driver

import (
	"runtime"
	"sync"
	"time"

	"github.com/entrhq/e2ekit/pkg/browser"
	"github.com/entrhq/e2ekit/pkg/logging"
)

// Config holds the engine settings shared by every stage.
type Config struct {
	Headless    bool
	Timeout     time.Duration
	ExtraArgs   []string
	Preferences map[string]any

	// DriversDir is the project-local directory searched by discovery
	DriversDir string

	// CacheDirs are the framework download caches searched by discovery
	CacheDirs []string

	// Viewport overrides the default 1920x1080 when non-zero
	Viewport browser.Viewport
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the chain logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Chain) {
		if log != nil {
			c.log = log
		}
	}
}

// WithPlatform overrides the host operating system used for platform checks
// and binary naming.
func WithPlatform(goos string) Option {
	return func(c *Chain) {
		c.goos = goos
	}
}

// WithManagedStage replaces the managed stage constructor.
func WithManagedStage(fn StageFunc) Option {
	return func(c *Chain) {
		c.managed = fn
	}
}

// WithDiscoverer replaces the binary discoverer.
func WithDiscoverer(d *Discoverer) Option {
	return func(c *Chain) {
		c.discoverer = d
	}
}

// WithDiscoveryLauncher replaces the launcher used for a discovered binary.
func WithDiscoveryLauncher(fn StageFunc) Option {
	return func(c *Chain) {
		c.discoveryLaunch = fn
	}
}

// WithNativeStage replaces the native stage constructor.
func WithNativeStage(fn StageFunc) Option {
	return func(c *Chain) {
		c.native = fn
	}
}

// WithClock sets the time source for Handle.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		c.now = now
	}
}

// Chain acquires at most one browser session and owns it until Dispose.
type Chain struct {
	cfg  Config
	log  *logging.Logger
	goos string
	now  func() time.Time

	managed         StageFunc
	discoverer      *Discoverer
	discoveryLaunch StageFunc
	native          StageFunc

	mu       sync.Mutex
	handle   *Handle
	disposed bool
}

// NewChain creates a chain with the default playwright and go-rod stages.
func NewChain(cfg Config, opts ...Option) *Chain {
	c := &Chain{
		cfg:             cfg,
		log:             logging.Nop(),
		goos:            runtime.GOOS,
		now:             time.Now,
		managed:         launchManaged,
		discoveryLaunch: launchDiscovered,
		native:          launchNative,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.discoverer == nil {
		c.discoverer = NewDiscoverer(cfg.DriversDir, cfg.CacheDirs, c.goos, c.log)
	}
	return c
}

// Stages returns the ordered acquisition stages for engine.
func (c *Chain) Stages(engine browser.Engine) []Stage {
	stages := []Stage{{Name: StageManaged, Run: c.managed}}
	if engine == browser.EnginePrimary {
		stages = append(stages, Stage{
			Name:   StageDiscovery,
			Locate: c.discoverer.Find,
			Run:    c.discoveryLaunch,
		})
	}
	return append(stages, Stage{Name: StageNative, Run: c.native})
}

// LaunchOptions resolves the options every stage receives for engine.
func (c *Chain) LaunchOptions(engine browser.Engine) browser.LaunchOptions {
	opts := browser.BuildLaunchOptions(engine, browser.EngineSettings{
		Headless:    c.cfg.Headless,
		Timeout:     c.cfg.Timeout,
		ExtraArgs:   c.cfg.ExtraArgs,
		Preferences: c.cfg.Preferences,
	})
	if c.cfg.Viewport.Width > 0 && c.cfg.Viewport.Height > 0 {
		opts.Viewport = c.cfg.Viewport
	}
	return opts
}

// Acquire returns the live session, creating it on first use. Once a session
// exists the engine argument is ignored and the same *Handle is returned.
func (c *Chain) Acquire(engine browser.Engine) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, ErrChainDisposed
	}
	if c.handle != nil {
		c.log.Infof("Reusing existing %s session", c.handle.Engine)
		return c.handle, nil
	}

	if !engine.Valid() {
		return nil, &browser.UnsupportedEngineError{Name: engine.String()}
	}
	if err := engine.CheckPlatform(c.goos); err != nil {
		return nil, err
	}

	opts := c.LaunchOptions(engine)
	c.log.Infof("Creating %s session (headless: %t)", engine, opts.Headless)

	var failures []StageResult
	for _, stage := range c.Stages(engine) {
		result := stage.run(engine, opts)
		if result.OK() {
			c.handle = newHandle(engine, result, c.now())
			c.log.Infof("%s session created via %s stage", engine, stage.Name)
			return c.handle, nil
		}
		c.log.Warnf("%s stage failed for %s: %v", stage.Name, engine, result.Err)
		failures = append(failures, result)
	}

	err := &AcquisitionError{Engine: engine, Failures: failures}
	c.log.Errorf("%v", err)
	return nil, err
}

// AcquireNamed parses a configured engine name and acquires it.
func (c *Chain) AcquireNamed(name string) (*Handle, error) {
	engine, err := browser.ParseEngine(name)
	if err != nil {
		return nil, err
	}
	return c.Acquire(engine)
}

// Current returns the live handle, or nil when none has been acquired.
func (c *Chain) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// Dispose quits the session, if any, and marks the chain disposed. Later
// calls are no-ops.
func (c *Chain) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil
	}
	c.disposed = true

	if c.handle == nil {
		return nil
	}
	h := c.handle
	c.handle = nil

	if err := h.close(); err != nil {
		c.log.Warnf("Error disposing %s session: %v", h.Engine, err)
		return err
	}
	c.log.Infof("%s session disposed", h.Engine)
	return nil
}

// Disposed reports whether Dispose has been called.
func (c *Chain) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
