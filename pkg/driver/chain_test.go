package driver

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/e2ekit/pkg/browser"
	"github.com/entrhq/e2ekit/pkg/browser/browsertest"
	"github.com/entrhq/e2ekit/pkg/logging"
)

// emptyDiscoverer never finds a binary.
func emptyDiscoverer(t *testing.T) *Discoverer {
	t.Helper()
	return NewDiscoverer(filepath.Join(t.TempDir(), "none"), nil, "linux", nil)
}

func stageNames(stages []Stage) []string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.Name)
	}
	return names
}

func TestStages_Order(t *testing.T) {
	c := NewChain(Config{}, WithDiscoverer(emptyDiscoverer(t)))

	assert.Equal(t, []string{StageManaged, StageDiscovery, StageNative}, stageNames(c.Stages(browser.EnginePrimary)))
	for _, engine := range []browser.Engine{browser.EngineSecondary, browser.EngineTertiary, browser.EngineNative} {
		assert.Equal(t, []string{StageManaged, StageNative}, stageNames(c.Stages(engine)), engine.String())
	}
}

func TestAcquire_FirstStageWins(t *testing.T) {
	session := browsertest.NewSession()
	var managed, discovery, native int
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	c := NewChain(Config{},
		WithDiscoverer(emptyDiscoverer(t)),
		WithManagedStage(browsertest.Stage(session, &managed)),
		WithDiscoveryLauncher(browsertest.FailingStage(browsertest.ErrLaunch, &discovery)),
		WithNativeStage(browsertest.FailingStage(browsertest.ErrLaunch, &native)),
		WithClock(func() time.Time { return created }),
	)

	h, err := c.Acquire(browser.EnginePrimary)
	require.NoError(t, err)
	assert.Equal(t, StageManaged, h.Stage)
	assert.Equal(t, browser.EnginePrimary, h.Engine)
	assert.Same(t, session, h.Session)
	assert.Equal(t, created, h.CreatedAt)
	assert.Empty(t, h.BinaryPath)
	assert.True(t, h.Live())
	assert.Equal(t, 1, managed)
	assert.Zero(t, discovery)
	assert.Zero(t, native)
}

func TestAcquire_ReusesHandle(t *testing.T) {
	var managed int
	c := NewChain(Config{},
		WithDiscoverer(emptyDiscoverer(t)),
		WithManagedStage(browsertest.Stage(browsertest.NewSession(), &managed)),
	)

	first, err := c.Acquire(browser.EnginePrimary)
	require.NoError(t, err)

	// The engine argument is ignored once a session exists
	second, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, c.Current())
	assert.Equal(t, browser.EnginePrimary, second.Engine)
	assert.Equal(t, 1, managed)
}

func TestAcquire_DiscoveryFallback(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "chrome-120.0.6099", "chrome")
	writeBinary(t, bin)

	var buf bytes.Buffer
	session := browsertest.NewSession()
	var native int
	var launchedWith string

	c := NewChain(Config{},
		WithLogger(logging.New("driver", &buf)),
		WithDiscoverer(NewDiscoverer(dir, nil, "linux", nil)),
		WithManagedStage(browsertest.FailingStage(errors.New("download blocked"), nil)),
		WithDiscoveryLauncher(func(_ browser.Engine, opts browser.LaunchOptions) (browser.Session, error) {
			launchedWith = opts.ExecutablePath
			return session, nil
		}),
		WithNativeStage(browsertest.FailingStage(browsertest.ErrLaunch, &native)),
	)

	h, err := c.Acquire(browser.EnginePrimary)
	require.NoError(t, err)
	assert.Equal(t, StageDiscovery, h.Stage)
	assert.Equal(t, bin, h.BinaryPath)
	assert.Equal(t, bin, launchedWith)
	assert.Zero(t, native, "native stage must not run after discovery succeeds")
	assert.Contains(t, buf.String(), "[WARN] managed stage failed for chrome: download blocked")
}

func TestAcquire_NonPrimarySkipsDiscovery(t *testing.T) {
	var discovery int
	session := browsertest.NewSession()

	c := NewChain(Config{},
		WithDiscoverer(emptyDiscoverer(t)),
		WithManagedStage(browsertest.FailingStage(browsertest.ErrLaunch, nil)),
		WithDiscoveryLauncher(browsertest.Stage(browsertest.NewSession(), &discovery)),
		WithNativeStage(browsertest.Stage(session, nil)),
	)

	h, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)
	assert.Equal(t, StageNative, h.Stage)
	assert.Zero(t, discovery)
}

func TestAcquire_AllStagesFail(t *testing.T) {
	managedErr := errors.New("managed down")
	nativeErr := errors.New("native down")

	c := NewChain(Config{},
		WithDiscoverer(emptyDiscoverer(t)),
		WithManagedStage(browsertest.FailingStage(managedErr, nil)),
		WithNativeStage(browsertest.FailingStage(nativeErr, nil)),
	)

	h, err := c.Acquire(browser.EnginePrimary)
	assert.Nil(t, h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.ErrorIs(t, err, nativeErr, "Unwrap yields the last stage error")

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, browser.EnginePrimary, acqErr.Engine)
	require.Len(t, acqErr.Failures, 3)
	assert.Equal(t, []string{StageManaged, StageDiscovery, StageNative}, []string{
		acqErr.Failures[0].Stage, acqErr.Failures[1].Stage, acqErr.Failures[2].Stage,
	})

	errs := acqErr.Errors()
	assert.Same(t, managedErr, errs[0])
	assert.ErrorIs(t, errs[1], ErrBinaryNotFound)
	assert.Same(t, nativeErr, errs[2])
	assert.Contains(t, err.Error(), "managed: managed down")
	assert.Nil(t, c.Current())
}

func TestAcquire_StagePanicBecomesFailure(t *testing.T) {
	session := browsertest.NewSession()
	c := NewChain(Config{},
		WithManagedStage(func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
			panic("boom")
		}),
		WithNativeStage(browsertest.Stage(session, nil)),
	)

	h, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)
	assert.Equal(t, StageNative, h.Stage)
}

func TestAcquire_NilSessionIsFailure(t *testing.T) {
	c := NewChain(Config{},
		WithManagedStage(func(browser.Engine, browser.LaunchOptions) (browser.Session, error) {
			return nil, nil
		}),
		WithNativeStage(browsertest.FailingStage(browsertest.ErrLaunch, nil)),
	)

	_, err := c.Acquire(browser.EngineTertiary)
	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.EqualError(t, acqErr.Failures[0].Err, "stage returned no session")
}

func TestAcquire_UnsupportedEngine(t *testing.T) {
	var managed int
	c := NewChain(Config{}, WithManagedStage(browsertest.Stage(browsertest.NewSession(), &managed)))

	_, err := c.Acquire(browser.Engine(42))
	var unsupported *browser.UnsupportedEngineError
	require.ErrorAs(t, err, &unsupported)

	_, err = c.AcquireNamed("opera")
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "opera", unsupported.Name)
	assert.Zero(t, managed)
}

func TestAcquire_PlatformMismatch(t *testing.T) {
	var managed int
	session := browsertest.NewSession()

	linux := NewChain(Config{},
		WithPlatform("linux"),
		WithManagedStage(browsertest.Stage(session, &managed)),
	)
	_, err := linux.Acquire(browser.EngineNative)
	var mismatch *browser.PlatformMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "linux", mismatch.Platform)
	assert.Zero(t, managed)

	mac := NewChain(Config{},
		WithPlatform("darwin"),
		WithManagedStage(browsertest.Stage(session, &managed)),
	)
	h, err := mac.AcquireNamed("safari")
	require.NoError(t, err)
	assert.Equal(t, browser.EngineNative, h.Engine)
}

func TestDispose_Idempotent(t *testing.T) {
	session := browsertest.NewSession()
	c := NewChain(Config{}, WithManagedStage(browsertest.Stage(session, nil)))

	h, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)

	require.NoError(t, c.Dispose())
	require.NoError(t, c.Dispose())

	assert.Equal(t, 1, session.QuitCount())
	assert.False(t, h.Live())
	assert.True(t, c.Disposed())
	assert.Nil(t, c.Current())

	_, err = c.Acquire(browser.EngineSecondary)
	assert.ErrorIs(t, err, ErrChainDisposed)
}

func TestDispose_WithoutSession(t *testing.T) {
	c := NewChain(Config{})
	require.NoError(t, c.Dispose())
	assert.True(t, c.Disposed())
}

func TestDispose_QuitFailure(t *testing.T) {
	session := browsertest.NewSession()
	session.QuitErr = errors.New("socket closed")
	c := NewChain(Config{}, WithManagedStage(browsertest.Stage(session, nil)))

	_, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)

	assert.EqualError(t, c.Dispose(), "socket closed")
	assert.True(t, c.Disposed())
	assert.NoError(t, c.Dispose())
}

func TestDispose_QuitPanic(t *testing.T) {
	session := browsertest.NewSession()
	session.QuitPanic = "driver crashed"
	c := NewChain(Config{}, WithManagedStage(browsertest.Stage(session, nil)))

	_, err := c.Acquire(browser.EngineSecondary)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		err = c.Dispose()
	})
	assert.ErrorContains(t, err, "driver crashed")
}

func TestLaunchOptions(t *testing.T) {
	c := NewChain(Config{
		Headless:  true,
		Timeout:   5 * time.Second,
		ExtraArgs: []string{"--lang=de", "--no-sandbox"},
		Viewport:  browser.Viewport{Width: 800, Height: 600},
	})

	opts := c.LaunchOptions(browser.EnginePrimary)
	assert.True(t, opts.Headless)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, browser.Viewport{Width: 800, Height: 600}, opts.Viewport)
	assert.Equal(t, []string{"--lang=de", "--no-sandbox"}, opts.Args[len(opts.Args)-2:])

	defaults := NewChain(Config{}).LaunchOptions(browser.EngineSecondary)
	assert.Equal(t, browser.Viewport{Width: browser.DefaultViewportWidth, Height: browser.DefaultViewportHeight}, defaults.Viewport)
}

func writeBinary(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
}
